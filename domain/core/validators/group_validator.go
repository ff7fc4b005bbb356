package validators

import (
	"optigroup/domain/core/aggregates"
	"optigroup/pkg/errors"
)

// GroupSizeValidator checks finalized groups against the configured size
// ceiling. An oversized group is fatal for the run: the grouping is discarded
// and nothing is passed to the scheduling job. No auto-splitting is performed
// because an oversized group means the caller must re-scope the horizon or
// the territory filter.
type GroupSizeValidator struct {
	maxGroupSize int
}

// NewGroupSizeValidator creates a validator with the given ceiling; a
// non-positive ceiling falls back to the default.
func NewGroupSizeValidator(maxGroupSize int) *GroupSizeValidator {
	if maxGroupSize <= 0 {
		maxGroupSize = aggregates.DefaultMaxGroupSize
	}
	return &GroupSizeValidator{maxGroupSize: maxGroupSize}
}

// MaxGroupSize returns the configured ceiling
func (v *GroupSizeValidator) MaxGroupSize() int {
	return v.maxGroupSize
}

// Validate returns a size-violation error enumerating the ceiling and every
// offending territory id when any group exceeds the ceiling, nil otherwise.
func (v *GroupSizeValidator) Validate(groups []*aggregates.Group) error {
	var offending []string
	for _, grp := range groups {
		if grp.Size() <= v.maxGroupSize {
			continue
		}
		for _, id := range grp.TerritoryIDs() {
			offending = append(offending, id.String())
		}
	}

	if len(offending) > 0 {
		return errors.NewSizeViolationError(v.maxGroupSize, offending)
	}
	return nil
}
