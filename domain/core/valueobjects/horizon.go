package valueobjects

import (
	"errors"
	"time"
)

// Horizon is the time window over which membership facts are considered
// relevant to a grouping run. Start is inclusive; a membership is in scope
// when its effective range overlaps [Start, End].
type Horizon struct {
	start time.Time
	end   time.Time
}

// NewHorizon creates a Horizon and enforces start <= end
func NewHorizon(start, end time.Time) (Horizon, error) {
	if start.IsZero() || end.IsZero() {
		return Horizon{}, errors.New("horizon start and end are required")
	}
	if end.Before(start) {
		return Horizon{}, errors.New("horizon end must not be before start")
	}
	return Horizon{start: start, end: end}, nil
}

// Start returns the inclusive start of the horizon
func (h Horizon) Start() time.Time {
	return h.start
}

// End returns the end of the horizon
func (h Horizon) End() time.Time {
	return h.end
}

// Days returns the horizon length in whole days, rounded up
func (h Horizon) Days() int {
	d := h.end.Sub(h.start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Overlaps reports whether an effective range [effStart, effEnd] intersects
// the horizon. A zero effEnd means the membership is open-ended.
func (h Horizon) Overlaps(effStart, effEnd time.Time) bool {
	if effStart.After(h.end) {
		return false
	}
	if effEnd.IsZero() {
		return true
	}
	return !effEnd.Before(h.start)
}

// IsZero checks if the horizon is the zero value
func (h Horizon) IsZero() bool {
	return h.start.IsZero() && h.end.IsZero()
}
