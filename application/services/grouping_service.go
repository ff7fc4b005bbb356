package services

import (
	"context"
	"sort"

	"optigroup/application/ports"
	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/aggregates"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/core/validators"
	"optigroup/domain/events"
	"optigroup/domain/versioning"
	pkgerrors "optigroup/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupingService runs the whole grouping pipeline for one invocation:
// fetch facts, build the membership indices, extract connected territory
// groups and validate them against the size ceiling. The pipeline is a
// single sequential pass; each run owns its session exclusively and shares
// nothing with other runs except the immutable domain configuration.
type GroupingService struct {
	memberships ports.MembershipReader
	domainCfg   *domainconfig.DomainConfig
	logger      *zap.Logger
}

// NewGroupingService creates a new grouping service
func NewGroupingService(
	memberships ports.MembershipReader,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *GroupingService {
	if domainCfg == nil {
		domainCfg = domainconfig.DefaultDomainConfig()
	}
	return &GroupingService{
		memberships: memberships,
		domainCfg:   domainCfg,
		logger:      logger,
	}
}

// GroupingRun is a finalized, validated grouping: the read-only output of
// one CreateGroups invocation.
type GroupingRun struct {
	RunID   string
	Horizon valueobjects.Horizon
	Groups  map[int]map[string]string
	Version versioning.GroupingVersion
	Events  []events.DomainEvent
}

// IsEmpty reports whether the run produced no groups
func (r *GroupingRun) IsEmpty() bool {
	return len(r.Groups) == 0
}

// Assignments pairs every group with the policy id, ordered by group key,
// ready for the scheduling job updater.
func (r *GroupingRun) Assignments(policyID string) []ports.GroupAssignment {
	keys := make([]int, 0, len(r.Groups))
	for key := range r.Groups {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	assignments := make([]ports.GroupAssignment, 0, len(keys))
	for _, key := range keys {
		members := r.Groups[key]
		ids := make([]string, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		assignments = append(assignments, ports.GroupAssignment{
			PolicyID:     policyID,
			TerritoryIDs: ids,
		})
	}
	return assignments
}

// CreateGroups runs the pipeline for the given horizon and optional
// territory filter. The operation is all-or-nothing: any data error, size
// violation or upstream failure discards the grouping entirely.
func (s *GroupingService) CreateGroups(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) (*GroupingRun, error) {
	if horizon.IsZero() {
		return nil, pkgerrors.NewValidationError("grouping horizon is required")
	}
	if max := s.domainCfg.MaxHorizonDays; max > 0 && horizon.Days() > max {
		return nil, pkgerrors.NewValidationError("grouping horizon exceeds the configured maximum")
	}

	runID := uuid.New().String()

	s.logger.Info("Starting grouping run",
		zap.String("runID", runID),
		zap.Time("horizonStart", horizon.Start()),
		zap.Time("horizonEnd", horizon.End()),
		zap.Int("territoryFilter", len(territoryFilter)),
	)

	// Fact source failures propagate unmodified; the core never retries.
	facts, err := s.memberships.FetchMemberships(ctx, horizon, territoryFilter)
	if err != nil {
		return nil, err
	}

	if max := s.domainCfg.MaxFactsPerRun; max > 0 && len(facts) > max {
		return nil, pkgerrors.NewValidationError(
			"membership fact volume exceeds the per-run limit; narrow the horizon or filter")
	}

	opts := []aggregates.SessionOption{
		aggregates.WithMaxGroupSize(s.domainCfg.MaxGroupSize),
	}
	if s.domainCfg.StrictConnectivity {
		opts = append(opts, aggregates.WithStrictConnectivity())
	}
	session := aggregates.NewGroupingSession(opts...)

	if err := session.BuildIndex(facts); err != nil {
		return nil, err
	}
	if max := s.domainCfg.MaxTerritoriesPerRun; max > 0 && session.TerritoryCount() > max {
		return nil, pkgerrors.NewValidationError(
			"territory count exceeds the per-run limit; narrow the horizon or filter")
	}

	if err := session.ExtractGroups(); err != nil {
		return nil, err
	}

	validator := validators.NewGroupSizeValidator(session.MaxGroupSize())
	if err := validator.Validate(session.Groups()); err != nil {
		s.logger.Warn("Grouping run rejected by size validator",
			zap.String("runID", runID),
			zap.Int("maxGroupSize", validator.MaxGroupSize()),
			zap.Error(err),
		)
		return nil, err
	}

	result := session.Result()
	version, err := versioning.NewGroupingVersion(runID, result)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to fingerprint grouping run").WithCause(err)
	}

	s.logger.Info("Grouping run completed",
		zap.String("runID", runID),
		zap.Int("facts", len(facts)),
		zap.Int("territories", session.TerritoryCount()),
		zap.Int("resources", session.ResourceCount()),
		zap.Int("groups", len(result)),
		zap.String("checksum", version.Checksum),
	)

	return &GroupingRun{
		RunID:   runID,
		Horizon: horizon,
		Groups:  result,
		Version: version,
		Events:  session.GetUncommittedEvents(),
	}, nil
}
