package validators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigroup/domain/core/aggregates"
	"optigroup/domain/core/entities"
	pkgerrors "optigroup/pkg/errors"
)

func groupsFrom(t *testing.T, pairs [][2]string) []*aggregates.Group {
	t.Helper()
	s := aggregates.NewGroupingSession()
	facts := make([]entities.MembershipFact, 0, len(pairs))
	for _, p := range pairs {
		f, err := entities.NewMembershipFact(
			p[0], p[1], "Territory "+p[1],
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{},
			entities.TerritoryTypePrimary, true,
		)
		require.NoError(t, err)
		facts = append(facts, f)
	}
	require.NoError(t, s.BuildIndex(facts))
	require.NoError(t, s.ExtractGroups())
	return s.Groups()
}

func TestGroupSizeValidator(t *testing.T) {
	t.Run("groups within the ceiling pass", func(t *testing.T) {
		groups := groupsFrom(t, [][2]string{
			{"r1", "A"}, {"r1", "B"},
			{"r2", "C"}, {"r2", "D"},
		})
		v := NewGroupSizeValidator(2)
		assert.NoError(t, v.Validate(groups))
	})

	t.Run("an oversized chain fails with every member listed", func(t *testing.T) {
		// A-B-C chain over a ceiling of 2
		groups := groupsFrom(t, [][2]string{
			{"r1", "A"}, {"r1", "B"},
			{"r2", "B"}, {"r2", "C"},
		})
		v := NewGroupSizeValidator(2)

		err := v.Validate(groups)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsSizeViolation(err))

		var appErr *pkgerrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, appErr.Details["territory_ids"])
		assert.Equal(t, 2, appErr.Details["max_group_size"])
	})

	t.Run("non-positive ceiling falls back to the default", func(t *testing.T) {
		v := NewGroupSizeValidator(0)
		assert.Equal(t, aggregates.DefaultMaxGroupSize, v.MaxGroupSize())
	})
}
