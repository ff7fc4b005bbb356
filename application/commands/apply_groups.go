package commands

import (
	"errors"
	"time"
)

// ApplyGroupsCommand requests a full grouping run and, on success, writes
// the resulting assignments to the named scheduling job.
type ApplyGroupsCommand struct {
	JobName      string    `json:"job_name" validate:"required,min=1,max=128"`
	PolicyID     string    `json:"policy_id" validate:"required,min=1,max=128"`
	HorizonStart time.Time `json:"horizon_start"`
	HorizonEnd   time.Time `json:"horizon_end"`
	TerritoryIDs []string  `json:"territory_ids" validate:"max=10000,dive,min=1"`
	DryRun       bool      `json:"dry_run"`
	// Force reapplies even when the checksum matches the last recorded run.
	Force bool `json:"force"`
}

// Validate validates the command
func (cmd ApplyGroupsCommand) Validate() error {
	if cmd.JobName == "" {
		return errors.New("job name is required")
	}
	if cmd.PolicyID == "" {
		return errors.New("policy ID is required")
	}
	if !cmd.HorizonStart.IsZero() && !cmd.HorizonEnd.IsZero() && cmd.HorizonEnd.Before(cmd.HorizonStart) {
		return errors.New("horizon end precedes horizon start")
	}
	for _, id := range cmd.TerritoryIDs {
		if id == "" {
			return errors.New("territory filter contains an empty id")
		}
	}
	return nil
}
