package dynamodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"optigroup/domain/core/entities"
	pkgerrors "optigroup/pkg/errors"
)

func testItem() membershipItem {
	return membershipItem{
		PK:                   "TERRITORY#T-001",
		SK:                   "MEMBERSHIP#R-001",
		GSI1PK:               membershipEntityType,
		GSI1SK:               "2026-01-01T00:00:00Z",
		EntityType:           membershipEntityType,
		ResourceID:           "R-001",
		TerritoryID:          "T-001",
		TerritoryName:        "North District",
		TerritoryType:        string(entities.TerritoryTypePrimary),
		EffectiveStart:       "2026-01-01T00:00:00Z",
		EffectiveEnd:         "2026-06-30T00:00:00Z",
		ResourceActive:       true,
		TerritoryActive:      true,
		OptimizationEligible: true,
	}
}

func TestToFact(t *testing.T) {
	repo := NewMembershipRepository(nil, "memberships", "horizon-index", zap.NewNop())

	t.Run("maps a stored item to a domain fact", func(t *testing.T) {
		fact, err := repo.toFact(testItem())
		require.NoError(t, err)
		assert.Equal(t, "R-001", fact.ResourceID().String())
		assert.Equal(t, "T-001", fact.TerritoryID().String())
		assert.Equal(t, "North District", fact.TerritoryName())
		assert.Equal(t, entities.TerritoryTypePrimary, fact.TerritoryType())
		assert.True(t, fact.IsEligible())
		assert.Equal(t, 2026, fact.EffectiveStart().Year())
		assert.False(t, fact.EffectiveEnd().IsZero())
	})

	t.Run("missing effective end means open-ended", func(t *testing.T) {
		item := testItem()
		item.EffectiveEnd = ""

		fact, err := repo.toFact(item)
		require.NoError(t, err)
		assert.True(t, fact.EffectiveEnd().IsZero())
	})

	t.Run("malformed effective start is a data error", func(t *testing.T) {
		item := testItem()
		item.EffectiveStart = "01/01/2026"

		_, err := repo.toFact(item)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDataError(err))
		assert.Contains(t, err.Error(), "T-001")
	})

	t.Run("malformed effective end is a data error", func(t *testing.T) {
		item := testItem()
		item.EffectiveEnd = "soon"

		_, err := repo.toFact(item)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsDataError(err))
	})
}
