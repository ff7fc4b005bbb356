package ports

import (
	"context"
	"time"

	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/events"
	"optigroup/domain/versioning"
)

// MembershipReader is the membership fact source boundary.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation. The source returns only memberships for active
// resources and active, optimization-eligible territories whose effective
// range overlaps the horizon. The call is treated as an opaque synchronous
// fetch returning a complete in-memory list; retries and timeouts belong to
// the implementation, not to the grouping logic.
type MembershipReader interface {
	// FetchMemberships returns the membership facts in scope for the horizon.
	// A non-empty territoryFilter restricts the result to the named
	// territories only, even when other territories would connect to them.
	FetchMemberships(
		ctx context.Context,
		horizon valueobjects.Horizon,
		territoryFilter []valueobjects.TerritoryID,
	) ([]entities.MembershipFact, error)
}

// GroupAssignment pairs a policy with the territory ids of one finalized
// group, ready to hand to the scheduling system.
type GroupAssignment struct {
	PolicyID     string   `json:"policy_id"`
	TerritoryIDs []string `json:"territory_ids"`
}

// SchedulingJobUpdater is the downstream consumer boundary. It accepts a
// finished grouping and applies it to a named scheduling job.
type SchedulingJobUpdater interface {
	// ApplyGroups applies one assignment per group to the named job.
	// Returns false without attempting any update when assignments is empty;
	// true on success. Failures propagate unmodified to the caller.
	ApplyGroups(ctx context.Context, jobName string, assignments []GroupAssignment) (bool, error)
}

// RunRecorder persists an audit trail of applied grouping runs
type RunRecorder interface {
	// Record stores one applied run
	Record(ctx context.Context, jobName, policyID string, version versioning.GroupingVersion) error

	// Latest returns the most recent run for a job, or nil when none exists
	Latest(ctx context.Context, jobName string) (*versioning.GroupingVersion, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher
}

// Lock represents an acquired run lock
type Lock interface {
	// Release releases the lock
	Release(ctx context.Context) error
}

// RunLocker serializes apply runs per scheduling job so two instances never
// write assignments for the same job concurrently.
type RunLocker interface {
	// AcquireLock attempts to acquire the named lock for the given duration
	AcquireLock(ctx context.Context, resourceName, ownerID string, lockDuration time.Duration) (Lock, error)
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
