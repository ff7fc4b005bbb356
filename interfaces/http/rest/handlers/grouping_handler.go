package handlers

import (
	"net/http"
	"time"

	"optigroup/application/commands"
	commands_handlers "optigroup/application/commands/handlers"
	"optigroup/application/queries"
	querybus "optigroup/application/queries/bus"
	"optigroup/pkg/common"
	pkgerrors "optigroup/pkg/errors"
	"optigroup/pkg/observability"
	"optigroup/pkg/utils"

	"go.uber.org/zap"
)

// GroupingHandler handles grouping HTTP requests
type GroupingHandler struct {
	applyHandler *commands_handlers.ApplyGroupsHandler
	queryBus     *querybus.QueryBus
	errorHandler *pkgerrors.ErrorHandler
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewGroupingHandler creates a new grouping handler
func NewGroupingHandler(
	applyHandler *commands_handlers.ApplyGroupsHandler,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *GroupingHandler {
	return &GroupingHandler{
		applyHandler: applyHandler,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		metrics:      metrics,
		logger:       logger,
	}
}

// maxBodyBytes caps request bodies; a 10k-territory filter fits well under it
const maxBodyBytes = 1 << 20

// PreviewRequest represents the request body for a grouping preview
type PreviewRequest struct {
	HorizonStart string   `json:"horizon_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HorizonEnd   string   `json:"horizon_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TerritoryIDs []string `json:"territory_ids,omitempty" validate:"omitempty,max=10000,dive,min=1"`
}

// ApplyRequest represents the request body for applying groups to a job
type ApplyRequest struct {
	JobName      string   `json:"job_name" validate:"required,min=1,max=128"`
	PolicyID     string   `json:"policy_id" validate:"required,min=1,max=128"`
	HorizonStart string   `json:"horizon_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HorizonEnd   string   `json:"horizon_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TerritoryIDs []string `json:"territory_ids,omitempty" validate:"omitempty,max=10000,dive,min=1"`
	DryRun       bool     `json:"dry_run,omitempty"`
	Force        bool     `json:"force,omitempty"`
}

// Preview handles POST /groupings/preview
func (h *GroupingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	start, end, err := parseHorizon(req.HorizonStart, req.HorizonEnd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	began := time.Now()
	result, err := h.queryBus.Ask(r.Context(), queries.GetGroupingQuery{
		HorizonStart: start,
		HorizonEnd:   end,
		TerritoryIDs: req.TerritoryIDs,
	})
	h.metrics.RecordLatency(r.Context(), "grouping_preview", time.Since(began))
	if err != nil {
		h.recordError(r, err)
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// Apply handles POST /groupings/apply
func (h *GroupingHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	start, end, err := parseHorizon(req.HorizonStart, req.HorizonEnd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if userID, ok := common.GetUserID(r.Context()); ok {
		h.logger.Info("Apply requested",
			zap.String("userID", userID),
			zap.String("jobName", req.JobName),
			zap.Bool("dryRun", req.DryRun),
		)
	}

	began := time.Now()
	result, err := h.applyHandler.Handle(r.Context(), commands.ApplyGroupsCommand{
		JobName:      req.JobName,
		PolicyID:     req.PolicyID,
		HorizonStart: start,
		HorizonEnd:   end,
		TerritoryIDs: req.TerritoryIDs,
		DryRun:       req.DryRun,
		Force:        req.Force,
	})
	if err != nil {
		h.metrics.RecordGroupingRun(r.Context(), 0, 0, time.Since(began), err)
		h.recordError(r, err)
		h.errorHandler.Handle(w, r, err)
		return
	}

	territoryCount := 0
	for _, group := range result.Groups {
		territoryCount += len(group)
	}
	h.metrics.RecordGroupingRun(r.Context(), result.GroupCount, territoryCount, time.Since(began), nil)

	common.RespondJSON(w, http.StatusOK, result)
}

// recordError feeds the error taxonomy into the error metric
func (h *GroupingHandler) recordError(r *http.Request, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		h.metrics.RecordError(r.Context(), string(appErr.Type), appErr.Code)
		return
	}
	h.metrics.RecordError(r.Context(), "INTERNAL", "")
}

// parseHorizon parses the optional date bounds. Dates are whole days in UTC.
func parseHorizon(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = utils.ParseDate(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.NewValidationError("horizon_start must be a YYYY-MM-DD date")
		}
	}
	if endStr != "" {
		end, err = utils.ParseDate(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.NewValidationError("horizon_end must be a YYYY-MM-DD date")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, pkgerrors.NewValidationError("horizon_end precedes horizon_start")
	}

	return start, end, nil
}
