package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Source is the EventBridge source attached to published events
const Source = "optigroup"

// Grouping lifecycle events

// GroupingCompleted is raised when a grouping run finishes extraction
type GroupingCompleted struct {
	BaseEvent
	GroupCount     int `json:"group_count"`
	TerritoryCount int `json:"territory_count"`
}

// NewGroupingCompleted creates a GroupingCompleted event
func NewGroupingCompleted(groupCount, territoryCount int, timestamp time.Time) GroupingCompleted {
	return GroupingCompleted{
		BaseEvent: BaseEvent{
			AggregateID: "grouping",
			EventType:   "grouping.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		GroupCount:     groupCount,
		TerritoryCount: territoryCount,
	}
}

// GroupingSizeViolation is raised when a finished run exceeded the ceiling
type GroupingSizeViolation struct {
	BaseEvent
	MaxGroupSize int      `json:"max_group_size"`
	TerritoryIDs []string `json:"territory_ids"`
}

// NewGroupingSizeViolation creates a GroupingSizeViolation event
func NewGroupingSizeViolation(maxGroupSize int, territoryIDs []string, timestamp time.Time) GroupingSizeViolation {
	return GroupingSizeViolation{
		BaseEvent: BaseEvent{
			AggregateID: "grouping",
			EventType:   "grouping.size_violation",
			Timestamp:   timestamp,
			Version:     1,
		},
		MaxGroupSize: maxGroupSize,
		TerritoryIDs: territoryIDs,
	}
}

// GroupsApplied is raised when a finalized grouping was applied to a
// scheduling job
type GroupsApplied struct {
	BaseEvent
	JobName    string `json:"job_name"`
	PolicyID   string `json:"policy_id"`
	GroupCount int    `json:"group_count"`
	RunID      string `json:"run_id"`
	Checksum   string `json:"checksum,omitempty"`
}

// NewGroupsApplied creates a GroupsApplied event
func NewGroupsApplied(jobName, policyID, runID, checksum string, groupCount int, timestamp time.Time) GroupsApplied {
	return GroupsApplied{
		BaseEvent: BaseEvent{
			AggregateID: jobName,
			EventType:   "grouping.applied",
			Timestamp:   timestamp,
			Version:     1,
		},
		JobName:    jobName,
		PolicyID:   policyID,
		GroupCount: groupCount,
		RunID:      runID,
		Checksum:   checksum,
	}
}
