package dynamodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"optigroup/application/ports"
)

func TestApplyGroupsEmptyAssignments(t *testing.T) {
	// A nil client proves the no-op path never reaches DynamoDB.
	updater := NewJobUpdater(nil, "jobs", zap.NewNop())

	applied, err := updater.ApplyGroups(context.Background(), "territory-optimization", nil)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestNewAssignmentItem(t *testing.T) {
	assignment := ports.GroupAssignment{
		PolicyID:     "policy-1",
		TerritoryIDs: []string{"T-001", "T-002"},
	}

	item := newAssignmentItem("territory-optimization", 3, assignment, "2026-08-26T00:00:00Z")

	assert.Equal(t, "JOB#territory-optimization", item.PK)
	assert.Equal(t, "ASSIGNMENT#000003", item.SK)
	assert.Equal(t, assignmentEntity, item.EntityType)
	assert.Equal(t, "territory-optimization", item.JobName)
	assert.Equal(t, "policy-1", item.PolicyID)
	assert.Equal(t, []string{"T-001", "T-002"}, item.TerritoryIDs)
	assert.Equal(t, "2026-08-26T00:00:00Z", item.UpdatedAt)
}
