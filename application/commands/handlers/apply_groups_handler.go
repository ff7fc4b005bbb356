package handlers

import (
	"context"
	"fmt"
	"time"

	"optigroup/application/commands"
	"optigroup/application/ports"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/events"
	pkgerrors "optigroup/pkg/errors"
	"optigroup/pkg/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApplyGroupsHandler orchestrates the apply flow: run the grouping pipeline
// under a per-job lock, hand the assignments to the scheduling job updater
// and publish the resulting domain events. The lock keeps two instances
// from writing assignments for the same job at the same time.
type ApplyGroupsHandler struct {
	grouping   *services.GroupingService
	jobUpdater ports.SchedulingJobUpdater
	eventBus   ports.EventBus
	locker     ports.RunLocker
	recorder   ports.RunRecorder
	domainCfg  *domainconfig.DomainConfig
	tracer     *observability.Tracer
	logger     *zap.Logger
}

// NewApplyGroupsHandler creates a new apply groups handler
func NewApplyGroupsHandler(
	grouping *services.GroupingService,
	jobUpdater ports.SchedulingJobUpdater,
	eventBus ports.EventBus,
	locker ports.RunLocker,
	recorder ports.RunRecorder,
	domainCfg *domainconfig.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ApplyGroupsHandler {
	if domainCfg == nil {
		domainCfg = domainconfig.DefaultDomainConfig()
	}
	return &ApplyGroupsHandler{
		grouping:   grouping,
		jobUpdater: jobUpdater,
		eventBus:   eventBus,
		locker:     locker,
		recorder:   recorder,
		domainCfg:  domainCfg,
		tracer:     tracer,
		logger:     logger,
	}
}

// ApplyGroupsResult reports the outcome of one apply run
type ApplyGroupsResult struct {
	RunID      string                    `json:"run_id"`
	JobName    string                    `json:"job_name"`
	PolicyID   string                    `json:"policy_id"`
	Applied    bool                      `json:"applied"`
	DryRun     bool                      `json:"dry_run"`
	GroupCount int                       `json:"group_count"`
	Checksum   string                    `json:"checksum"`
	Groups     map[int]map[string]string `json:"groups"`
}

// Handle executes the apply groups command
func (h *ApplyGroupsHandler) Handle(ctx context.Context, cmd commands.ApplyGroupsCommand) (*ApplyGroupsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	horizon, err := h.resolveHorizon(cmd)
	if err != nil {
		return nil, err
	}
	filter, err := h.resolveFilter(cmd)
	if err != nil {
		return nil, err
	}

	// Dry runs never touch the scheduling job, so they need no lock.
	if !cmd.DryRun {
		ownerID := uuid.New().String()
		lock, err := h.locker.AcquireLock(ctx, "apply:"+cmd.JobName, ownerID, h.domainCfg.ApplyLockExpiry)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				h.logger.Warn("Failed to release apply lock",
					zap.String("jobName", cmd.JobName),
					zap.Error(err),
				)
			}
		}()
	}

	if h.domainCfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.domainCfg.RunTimeout)
		defer cancel()
	}

	var run *services.GroupingRun
	err = h.tracer.Capture(ctx, "grouping", func(ctx context.Context) error {
		var groupErr error
		run, groupErr = h.grouping.CreateGroups(ctx, horizon, filter)
		return groupErr
	})
	if err != nil {
		h.tracer.RecordError(ctx, err)
		h.publishSizeViolation(ctx, err)
		return nil, err
	}
	h.tracer.AddAnnotation(ctx, "run_id", run.RunID)
	h.tracer.AddMetadata(ctx, "group_count", len(run.Groups))

	result := &ApplyGroupsResult{
		RunID:      run.RunID,
		JobName:    cmd.JobName,
		PolicyID:   cmd.PolicyID,
		DryRun:     cmd.DryRun,
		GroupCount: len(run.Groups),
		Checksum:   run.Version.Checksum,
		Groups:     run.Groups,
	}

	if cmd.DryRun {
		return result, nil
	}

	// Skip the write when the grouping content has not moved since the last
	// recorded run for this job.
	if h.recorder != nil && !cmd.Force {
		if latest, err := h.recorder.Latest(ctx, cmd.JobName); err == nil && latest != nil && latest.Matches(run.Version) {
			h.logger.Info("Grouping unchanged since last applied run, skipping",
				zap.String("runID", run.RunID),
				zap.String("jobName", cmd.JobName),
				zap.String("checksum", run.Version.Checksum),
			)
			return result, nil
		}
	}

	assignments := run.Assignments(cmd.PolicyID)
	var applied bool
	err = h.tracer.Capture(ctx, "apply", func(ctx context.Context) error {
		var applyErr error
		applied, applyErr = h.jobUpdater.ApplyGroups(ctx, cmd.JobName, assignments)
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	if !applied {
		h.logger.Info("No groups to apply, scheduling job left untouched",
			zap.String("runID", run.RunID),
			zap.String("jobName", cmd.JobName),
		)
		return result, nil
	}

	if h.recorder != nil {
		if err := h.recorder.Record(ctx, cmd.JobName, cmd.PolicyID, run.Version); err != nil {
			// The job update already landed; a missing audit row is not
			// worth failing the run over.
			h.logger.Error("Failed to record grouping run",
				zap.String("runID", run.RunID),
				zap.Error(err),
			)
		}
	}

	runEvents := run.Events
	runEvents = append(runEvents, events.NewGroupsApplied(
		cmd.JobName, cmd.PolicyID, run.RunID, run.Version.Checksum, len(run.Groups), time.Now()))

	if err := h.eventBus.PublishBatch(ctx, runEvents); err != nil {
		// The job update already landed; event delivery is best effort.
		h.logger.Error("Failed to publish grouping events",
			zap.String("runID", run.RunID),
			zap.Int("eventCount", len(runEvents)),
			zap.Error(err),
		)
	}

	h.logger.Info("Applied territory groups to scheduling job",
		zap.String("runID", run.RunID),
		zap.String("jobName", cmd.JobName),
		zap.String("policyID", cmd.PolicyID),
		zap.Int("groupCount", len(run.Groups)),
	)

	return result, nil
}

// publishSizeViolation turns a size violation into a domain event so the
// ceiling breach shows up on the bus, not just in the caller's error.
func (h *ApplyGroupsHandler) publishSizeViolation(ctx context.Context, err error) {
	if !pkgerrors.IsSizeViolation(err) {
		return
	}
	appErr := pkgerrors.GetAppError(err)
	maxGroupSize, _ := appErr.Details["max_group_size"].(int)
	territoryIDs, _ := appErr.Details["territory_ids"].([]string)

	event := events.NewGroupingSizeViolation(maxGroupSize, territoryIDs, time.Now())
	if pubErr := h.eventBus.Publish(context.WithoutCancel(ctx), event); pubErr != nil {
		h.logger.Error("Failed to publish size violation event", zap.Error(pubErr))
	}
}

func (h *ApplyGroupsHandler) resolveHorizon(cmd commands.ApplyGroupsCommand) (valueobjects.Horizon, error) {
	start := cmd.HorizonStart
	end := cmd.HorizonEnd
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, h.domainCfg.DefaultHorizonDays)
	}
	horizon, err := valueobjects.NewHorizon(start, end)
	if err != nil {
		return valueobjects.Horizon{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid horizon: %v", err))
	}
	return horizon, nil
}

func (h *ApplyGroupsHandler) resolveFilter(cmd commands.ApplyGroupsCommand) ([]valueobjects.TerritoryID, error) {
	if len(cmd.TerritoryIDs) == 0 {
		return nil, nil
	}
	filter := make([]valueobjects.TerritoryID, 0, len(cmd.TerritoryIDs))
	for _, raw := range cmd.TerritoryIDs {
		id, err := valueobjects.NewTerritoryID(raw)
		if err != nil {
			return nil, err
		}
		filter = append(filter, id)
	}
	return filter, nil
}
