package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	pkgerrors "optigroup/pkg/errors"
)

type mockMembershipReader struct {
	mock.Mock
}

func (m *mockMembershipReader) FetchMemberships(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) ([]entities.MembershipFact, error) {
	args := m.Called(ctx, horizon, territoryFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.MembershipFact), args.Error(1)
}

func testHorizon(t *testing.T) valueobjects.Horizon {
	t.Helper()
	h, err := valueobjects.NewHorizon(
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return h
}

func testFact(t *testing.T, resourceID, territoryID string) entities.MembershipFact {
	t.Helper()
	f, err := entities.NewMembershipFact(
		resourceID, territoryID, "Territory "+territoryID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{},
		entities.TerritoryTypePrimary, true,
	)
	require.NoError(t, err)
	return f
}

func TestCreateGroups(t *testing.T) {
	t.Run("builds validated groups from facts", func(t *testing.T) {
		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				testFact(t, "r1", "A"),
				testFact(t, "r1", "B"),
				testFact(t, "r2", "C"),
			}, nil)

		svc := NewGroupingService(reader, nil, zap.NewNop())

		run, err := svc.CreateGroups(context.Background(), testHorizon(t), nil)
		require.NoError(t, err)
		assert.NotEmpty(t, run.RunID)
		assert.Len(t, run.Groups, 2)
		assert.NotEmpty(t, run.Version.Checksum)
		assert.False(t, run.IsEmpty())
		reader.AssertExpectations(t)
	})

	t.Run("empty fact list yields an empty run", func(t *testing.T) {
		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{}, nil)

		svc := NewGroupingService(reader, nil, zap.NewNop())

		run, err := svc.CreateGroups(context.Background(), testHorizon(t), nil)
		require.NoError(t, err)
		assert.True(t, run.IsEmpty())
		assert.Empty(t, run.Assignments("policy-1"))
	})

	t.Run("territory filter is passed through to the fact source", func(t *testing.T) {
		filter := []valueobjects.TerritoryID{mustTerritoryID(t, "A"), mustTerritoryID(t, "B")}

		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, filter).
			Return([]entities.MembershipFact{}, nil)

		svc := NewGroupingService(reader, nil, zap.NewNop())

		_, err := svc.CreateGroups(context.Background(), testHorizon(t), filter)
		require.NoError(t, err)
		reader.AssertExpectations(t)
	})

	t.Run("fact source errors propagate unmodified", func(t *testing.T) {
		upstream := pkgerrors.NewUpstreamError("membership store", assert.AnError)

		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, upstream)

		svc := NewGroupingService(reader, nil, zap.NewNop())

		_, err := svc.CreateGroups(context.Background(), testHorizon(t), nil)
		require.ErrorIs(t, err, upstream)
	})

	t.Run("oversized group discards the run", func(t *testing.T) {
		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				testFact(t, "r1", "A"),
				testFact(t, "r1", "B"),
				testFact(t, "r2", "B"),
				testFact(t, "r2", "C"),
			}, nil)

		cfg := domainconfig.DefaultDomainConfig()
		cfg.MaxGroupSize = 2
		svc := NewGroupingService(reader, cfg, zap.NewNop())

		run, err := svc.CreateGroups(context.Background(), testHorizon(t), nil)
		require.Error(t, err)
		assert.Nil(t, run)
		assert.True(t, pkgerrors.IsSizeViolation(err))
	})

	t.Run("zero horizon is rejected", func(t *testing.T) {
		svc := NewGroupingService(new(mockMembershipReader), nil, zap.NewNop())
		_, err := svc.CreateGroups(context.Background(), valueobjects.Horizon{}, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("horizon beyond the maximum is rejected", func(t *testing.T) {
		h, err := valueobjects.NewHorizon(
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		)
		require.NoError(t, err)

		svc := NewGroupingService(new(mockMembershipReader), nil, zap.NewNop())
		_, err = svc.CreateGroups(context.Background(), h, nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("fact volume above the limit is rejected", func(t *testing.T) {
		reader := new(mockMembershipReader)
		reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				testFact(t, "r1", "A"),
				testFact(t, "r1", "B"),
			}, nil)

		cfg := domainconfig.DefaultDomainConfig()
		cfg.MaxFactsPerRun = 1
		svc := NewGroupingService(reader, cfg, zap.NewNop())

		_, err := svc.CreateGroups(context.Background(), testHorizon(t), nil)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestAssignmentsOrdering(t *testing.T) {
	run := &GroupingRun{
		Groups: map[int]map[string]string{
			1: {"Z": "", "Y": ""},
			0: {"B": "", "A": ""},
		},
	}

	assignments := run.Assignments("policy-1")
	require.Len(t, assignments, 2)
	assert.Equal(t, []string{"A", "B"}, assignments[0].TerritoryIDs)
	assert.Equal(t, []string{"Y", "Z"}, assignments[1].TerritoryIDs)
	assert.Equal(t, "policy-1", assignments[0].PolicyID)
}

func mustTerritoryID(t *testing.T, id string) valueobjects.TerritoryID {
	t.Helper()
	v, err := valueobjects.NewTerritoryID(id)
	require.NoError(t, err)
	return v
}
