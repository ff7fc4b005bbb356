package handlers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"optigroup/application/queries"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/valueobjects"
	"go.uber.org/zap"
)

// GetGroupingHandler handles grouping preview queries. A preview runs the
// full pipeline, including size validation, but never writes anything.
type GetGroupingHandler struct {
	grouping  *services.GroupingService
	domainCfg *domainconfig.DomainConfig
	logger    *zap.Logger
}

// NewGetGroupingHandler creates a new grouping preview handler
func NewGetGroupingHandler(
	grouping *services.GroupingService,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *GetGroupingHandler {
	if domainCfg == nil {
		domainCfg = domainconfig.DefaultDomainConfig()
	}
	return &GetGroupingHandler{
		grouping:  grouping,
		domainCfg: domainCfg,
		logger:    logger,
	}
}

// Handle executes the grouping preview query
func (h *GetGroupingHandler) Handle(ctx context.Context, query queries.GetGroupingQuery) (*queries.GetGroupingResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	start := query.HorizonStart
	end := query.HorizonEnd
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if end.IsZero() {
		end = start.AddDate(0, 0, h.domainCfg.DefaultHorizonDays)
	}
	horizon, err := valueobjects.NewHorizon(start, end)
	if err != nil {
		return nil, fmt.Errorf("invalid horizon: %w", err)
	}

	filter := make([]valueobjects.TerritoryID, 0, len(query.TerritoryIDs))
	for _, raw := range query.TerritoryIDs {
		id, err := valueobjects.NewTerritoryID(raw)
		if err != nil {
			return nil, err
		}
		filter = append(filter, id)
	}

	run, err := h.grouping.CreateGroups(ctx, horizon, filter)
	if err != nil {
		return nil, err
	}

	keys := make([]int, 0, len(run.Groups))
	for key := range run.Groups {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	territoryCount := 0
	summaries := make([]queries.GroupSummary, 0, len(keys))
	for _, key := range keys {
		members := run.Groups[key]
		territoryCount += len(members)
		summaries = append(summaries, queries.GroupSummary{
			Key:         key,
			Size:        len(members),
			Territories: members,
		})
	}

	h.logger.Debug("Grouping preview computed",
		zap.String("runID", run.RunID),
		zap.Int("groupCount", len(summaries)),
		zap.Int("territoryCount", territoryCount),
	)

	return &queries.GetGroupingResult{
		RunID:          run.RunID,
		HorizonStart:   horizon.Start(),
		HorizonEnd:     horizon.End(),
		GroupCount:     len(summaries),
		TerritoryCount: territoryCount,
		Checksum:       run.Version.Checksum,
		Groups:         summaries,
	}, nil
}
