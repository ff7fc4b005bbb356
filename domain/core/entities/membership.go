package entities

import (
	"time"

	"optigroup/domain/core/valueobjects"
	pkgerrors "optigroup/pkg/errors"
)

// TerritoryType classifies a service territory in the upstream system
type TerritoryType string

const (
	TerritoryTypePrimary   TerritoryType = "primary"
	TerritoryTypeSecondary TerritoryType = "secondary"
	TerritoryTypeRelocation TerritoryType = "relocation"
)

// MembershipFact is an immutable assertion that a resource belongs to a
// territory for an effective date range. Facts are produced once per query
// window by the membership fact source and never mutated afterwards.
type MembershipFact struct {
	resourceID     valueobjects.ResourceID
	territoryID    valueobjects.TerritoryID
	territoryName  string
	effectiveStart time.Time
	effectiveEnd   time.Time
	territoryType  TerritoryType
	isEligible     bool
}

// NewMembershipFact creates a membership fact, rejecting malformed input.
// A fact with a missing resource or territory id is a data error from the
// upstream source and must stop the run, never be silently dropped.
func NewMembershipFact(
	resourceID string,
	territoryID string,
	territoryName string,
	effectiveStart time.Time,
	effectiveEnd time.Time,
	territoryType TerritoryType,
	isEligible bool,
) (MembershipFact, error) {
	rid, err := valueobjects.NewResourceID(resourceID)
	if err != nil {
		return MembershipFact{}, pkgerrors.NewDataError(
			"membership fact has no resource id").WithCause(err)
	}

	tid, err := valueobjects.NewTerritoryID(territoryID)
	if err != nil {
		return MembershipFact{}, pkgerrors.NewDataError(
			"membership fact has no territory id").WithCause(err)
	}

	if !effectiveEnd.IsZero() && effectiveEnd.Before(effectiveStart) {
		return MembershipFact{}, pkgerrors.NewDataError(
			"membership fact effective end precedes effective start")
	}

	return MembershipFact{
		resourceID:     rid,
		territoryID:    tid,
		territoryName:  territoryName,
		effectiveStart: effectiveStart,
		effectiveEnd:   effectiveEnd,
		territoryType:  territoryType,
		isEligible:     isEligible,
	}, nil
}

// ResourceID returns the member resource id
func (f MembershipFact) ResourceID() valueobjects.ResourceID {
	return f.resourceID
}

// TerritoryID returns the territory the resource belongs to
func (f MembershipFact) TerritoryID() valueobjects.TerritoryID {
	return f.territoryID
}

// TerritoryName returns the territory display name, used only for
// human-readable validation and error output
func (f MembershipFact) TerritoryName() string {
	return f.territoryName
}

// EffectiveStart returns when the membership becomes effective
func (f MembershipFact) EffectiveStart() time.Time {
	return f.effectiveStart
}

// EffectiveEnd returns when the membership ends; zero means open-ended
func (f MembershipFact) EffectiveEnd() time.Time {
	return f.effectiveEnd
}

// TerritoryType returns the upstream territory classification
func (f MembershipFact) TerritoryType() TerritoryType {
	return f.territoryType
}

// IsEligible reports whether the territory is optimization-eligible
func (f MembershipFact) IsEligible() bool {
	return f.isEligible
}
