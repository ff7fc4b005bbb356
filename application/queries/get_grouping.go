package queries

import (
	"errors"
	"time"
)

// GetGroupingQuery previews the territory grouping for a horizon without
// touching any scheduling job.
type GetGroupingQuery struct {
	HorizonStart time.Time `json:"horizon_start"`
	HorizonEnd   time.Time `json:"horizon_end"`
	TerritoryIDs []string  `json:"territory_ids,omitempty"`
}

// Validate validates the query
func (q GetGroupingQuery) Validate() error {
	if !q.HorizonStart.IsZero() && !q.HorizonEnd.IsZero() && q.HorizonEnd.Before(q.HorizonStart) {
		return errors.New("horizon end precedes horizon start")
	}
	for _, id := range q.TerritoryIDs {
		if id == "" {
			return errors.New("territory filter contains an empty id")
		}
	}
	return nil
}

// GroupSummary describes one finalized group in a preview
type GroupSummary struct {
	Key         int               `json:"key"`
	Size        int               `json:"size"`
	Territories map[string]string `json:"territories"`
}

// GetGroupingResult is the preview payload
type GetGroupingResult struct {
	RunID          string         `json:"run_id"`
	HorizonStart   time.Time      `json:"horizon_start"`
	HorizonEnd     time.Time      `json:"horizon_end"`
	GroupCount     int            `json:"group_count"`
	TerritoryCount int            `json:"territory_count"`
	Checksum       string         `json:"checksum"`
	Groups         []GroupSummary `json:"groups"`
}
