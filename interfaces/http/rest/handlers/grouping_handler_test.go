package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	commands_handlers "optigroup/application/commands/handlers"
	"optigroup/application/ports"
	"optigroup/application/queries"
	querybus "optigroup/application/queries/bus"
	queries_handlers "optigroup/application/queries/handlers"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/events"
	"optigroup/domain/versioning"
	pkgerrors "optigroup/pkg/errors"
	"optigroup/pkg/observability"
)

type stubMembershipReader struct {
	facts []entities.MembershipFact
	err   error
}

func (s *stubMembershipReader) FetchMemberships(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) ([]entities.MembershipFact, error) {
	return s.facts, s.err
}

type stubJobUpdater struct {
	mock.Mock
}

func (s *stubJobUpdater) ApplyGroups(ctx context.Context, jobName string, assignments []ports.GroupAssignment) (bool, error) {
	args := s.Called(ctx, jobName, assignments)
	return args.Bool(0), args.Error(1)
}

type noopEventBus struct{}

func (noopEventBus) Publish(ctx context.Context, event events.DomainEvent) error { return nil }
func (noopEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	return nil
}

type noopLock struct{}

func (noopLock) Release(ctx context.Context) error { return nil }

type noopLocker struct{}

func (noopLocker) AcquireLock(ctx context.Context, resourceName, ownerID string, lockDuration time.Duration) (ports.Lock, error) {
	return noopLock{}, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, jobName, policyID string, version versioning.GroupingVersion) error {
	return nil
}

func (noopRecorder) Latest(ctx context.Context, jobName string) (*versioning.GroupingVersion, error) {
	return nil, nil
}

func httpFact(t *testing.T, resourceID, territoryID string) entities.MembershipFact {
	t.Helper()
	f, err := entities.NewMembershipFact(
		resourceID, territoryID, "Territory "+territoryID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{},
		entities.TerritoryTypePrimary, true,
	)
	require.NoError(t, err)
	return f
}

func newTestHandler(t *testing.T, reader *stubMembershipReader, cfg *domainconfig.DomainConfig, updater ports.SchedulingJobUpdater) *GroupingHandler {
	t.Helper()
	if cfg == nil {
		cfg = domainconfig.DefaultDomainConfig()
	}
	logger := zap.NewNop()
	grouping := services.NewGroupingService(reader, cfg, logger)

	previewHandler := queries_handlers.NewGetGroupingHandler(grouping, cfg, logger)
	queryBus := querybus.NewQueryBus()
	err := queryBus.Register(queries.GetGroupingQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (interface{}, error) {
			return previewHandler.Handle(ctx, query.(queries.GetGroupingQuery))
		}))
	require.NoError(t, err)

	applyHandler := commands_handlers.NewApplyGroupsHandler(
		grouping, updater, noopEventBus{}, noopLocker{}, noopRecorder{},
		cfg, observability.NewTracer("test", false), logger,
	)

	return NewGroupingHandler(
		applyHandler, queryBus,
		pkgerrors.NewErrorHandler(logger, false),
		observability.NewMetrics("", nil),
		logger,
	)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestPreview(t *testing.T) {
	t.Run("returns grouped territories", func(t *testing.T) {
		reader := &stubMembershipReader{facts: []entities.MembershipFact{
			httpFact(t, "r1", "A"),
			httpFact(t, "r1", "B"),
			httpFact(t, "r2", "C"),
		}}
		h := newTestHandler(t, reader, nil, nil)

		rec := postJSON(t, h.Preview, "/api/v1/groupings/preview", PreviewRequest{
			HorizonStart: "2026-03-01",
			HorizonEnd:   "2026-03-15",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Success bool                      `json:"success"`
			Data    queries.GetGroupingResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.True(t, envelope.Success)
		assert.Equal(t, 2, envelope.Data.GroupCount)
		assert.Equal(t, 3, envelope.Data.TerritoryCount)
		assert.NotEmpty(t, envelope.Data.Checksum)
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		h := newTestHandler(t, &stubMembershipReader{}, nil, nil)

		rec := postJSON(t, h.Preview, "/api/v1/groupings/preview", map[string]string{
			"horizon_start": "March 1st",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an inverted horizon", func(t *testing.T) {
		h := newTestHandler(t, &stubMembershipReader{}, nil, nil)

		rec := postJSON(t, h.Preview, "/api/v1/groupings/preview", PreviewRequest{
			HorizonStart: "2026-03-15",
			HorizonEnd:   "2026-03-01",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reports an oversized group as unprocessable", func(t *testing.T) {
		reader := &stubMembershipReader{facts: []entities.MembershipFact{
			httpFact(t, "r1", "A"),
			httpFact(t, "r1", "B"),
			httpFact(t, "r2", "B"),
			httpFact(t, "r2", "C"),
		}}
		cfg := domainconfig.DefaultDomainConfig()
		cfg.MaxGroupSize = 2
		h := newTestHandler(t, reader, cfg, nil)

		rec := postJSON(t, h.Preview, "/api/v1/groupings/preview", PreviewRequest{
			HorizonStart: "2026-03-01",
			HorizonEnd:   "2026-03-15",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var response pkgerrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.True(t, response.Error)
		assert.Contains(t, response.Details, "territory_ids")
	})
}

func TestApply(t *testing.T) {
	t.Run("dry run previews without writing", func(t *testing.T) {
		reader := &stubMembershipReader{facts: []entities.MembershipFact{
			httpFact(t, "r1", "A"),
			httpFact(t, "r1", "B"),
		}}
		updater := new(stubJobUpdater)
		h := newTestHandler(t, reader, nil, updater)

		rec := postJSON(t, h.Apply, "/api/v1/groupings/apply", ApplyRequest{
			JobName:  "territory-optimization",
			PolicyID: "policy-1",
			DryRun:   true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data commands_handlers.ApplyGroupsResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.True(t, envelope.Data.DryRun)
		assert.False(t, envelope.Data.Applied)
		assert.Equal(t, 1, envelope.Data.GroupCount)

		updater.AssertNotCalled(t, "ApplyGroups", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("writes assignments when not a dry run", func(t *testing.T) {
		reader := &stubMembershipReader{facts: []entities.MembershipFact{
			httpFact(t, "r1", "A"),
		}}
		updater := new(stubJobUpdater)
		updater.On("ApplyGroups", mock.Anything, "territory-optimization", mock.Anything).
			Return(true, nil)
		h := newTestHandler(t, reader, nil, updater)

		rec := postJSON(t, h.Apply, "/api/v1/groupings/apply", ApplyRequest{
			JobName:  "territory-optimization",
			PolicyID: "policy-1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data commands_handlers.ApplyGroupsResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.True(t, envelope.Data.Applied)

		updater.AssertExpectations(t)
	})

	t.Run("rejects a request without a job name", func(t *testing.T) {
		h := newTestHandler(t, &stubMembershipReader{}, nil, new(stubJobUpdater))

		rec := postJSON(t, h.Apply, "/api/v1/groupings/apply", ApplyRequest{
			PolicyID: "policy-1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a body that is not JSON", func(t *testing.T) {
		h := newTestHandler(t, &stubMembershipReader{}, nil, new(stubJobUpdater))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/groupings/apply", bytes.NewBufferString("not json"))
		rec := httptest.NewRecorder()
		h.Apply(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
