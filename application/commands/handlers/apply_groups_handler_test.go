package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"optigroup/application/commands"
	"optigroup/application/ports"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/events"
	"optigroup/domain/versioning"
	pkgerrors "optigroup/pkg/errors"
	"optigroup/pkg/observability"
)

type mockMembershipReader struct {
	mock.Mock
}

func (m *mockMembershipReader) FetchMemberships(
	ctx context.Context,
	horizon valueobjects.Horizon,
	territoryFilter []valueobjects.TerritoryID,
) ([]entities.MembershipFact, error) {
	args := m.Called(ctx, horizon, territoryFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.MembershipFact), args.Error(1)
}

type mockJobUpdater struct {
	mock.Mock
}

func (m *mockJobUpdater) ApplyGroups(ctx context.Context, jobName string, assignments []ports.GroupAssignment) (bool, error) {
	args := m.Called(ctx, jobName, assignments)
	return args.Bool(0), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

type mockLock struct {
	mock.Mock
}

func (m *mockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockRunLocker struct {
	mock.Mock
}

func (m *mockRunLocker) AcquireLock(ctx context.Context, resourceName, ownerID string, lockDuration time.Duration) (ports.Lock, error) {
	args := m.Called(ctx, resourceName, ownerID, lockDuration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Lock), args.Error(1)
}

type mockRunRecorder struct {
	mock.Mock
}

func (m *mockRunRecorder) Record(ctx context.Context, jobName, policyID string, version versioning.GroupingVersion) error {
	args := m.Called(ctx, jobName, policyID, version)
	return args.Error(0)
}

func (m *mockRunRecorder) Latest(ctx context.Context, jobName string) (*versioning.GroupingVersion, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*versioning.GroupingVersion), args.Error(1)
}

type handlerFixture struct {
	handler  *ApplyGroupsHandler
	reader   *mockMembershipReader
	updater  *mockJobUpdater
	eventBus *mockEventBus
	locker   *mockRunLocker
	recorder *mockRunRecorder
	lock     *mockLock
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		reader:   new(mockMembershipReader),
		updater:  new(mockJobUpdater),
		eventBus: new(mockEventBus),
		locker:   new(mockRunLocker),
		recorder: new(mockRunRecorder),
		lock:     new(mockLock),
	}

	cfg := domainconfig.DefaultDomainConfig()
	grouping := services.NewGroupingService(f.reader, cfg, zap.NewNop())
	f.handler = NewApplyGroupsHandler(
		grouping, f.updater, f.eventBus, f.locker, f.recorder,
		cfg, observability.NewTracer("test", false), zap.NewNop(),
	)
	return f
}

func applyFact(t *testing.T, resourceID, territoryID string) entities.MembershipFact {
	t.Helper()
	f, err := entities.NewMembershipFact(
		resourceID, territoryID, "Territory "+territoryID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{},
		entities.TerritoryTypePrimary, true,
	)
	require.NoError(t, err)
	return f
}

func validCommand() commands.ApplyGroupsCommand {
	return commands.ApplyGroupsCommand{
		JobName:  "territory-optimization",
		PolicyID: "policy-1",
	}
}

func TestApplyGroupsHandler(t *testing.T) {
	t.Run("applies groups and publishes events", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
				applyFact(t, "r1", "B"),
			}, nil)
		f.locker.On("AcquireLock", mock.Anything, "apply:territory-optimization", mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)
		f.recorder.On("Latest", mock.Anything, "territory-optimization").Return(nil, nil)
		f.updater.On("ApplyGroups", mock.Anything, "territory-optimization", mock.MatchedBy(func(a []ports.GroupAssignment) bool {
			return len(a) == 1 && a[0].PolicyID == "policy-1" && len(a[0].TerritoryIDs) == 2
		})).Return(true, nil)
		f.recorder.On("Record", mock.Anything, "territory-optimization", "policy-1", mock.Anything).
			Return(nil)
		f.eventBus.On("PublishBatch", mock.Anything, mock.MatchedBy(func(batch []events.DomainEvent) bool {
			if len(batch) == 0 {
				return false
			}
			last := batch[len(batch)-1]
			return last.GetEventType() == "grouping.applied"
		})).Return(nil)

		result, err := f.handler.Handle(context.Background(), validCommand())
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, 1, result.GroupCount)
		assert.NotEmpty(t, result.Checksum)

		f.updater.AssertExpectations(t)
		f.recorder.AssertExpectations(t)
		f.eventBus.AssertExpectations(t)
		f.lock.AssertExpectations(t)
	})

	t.Run("empty grouping applies nothing and publishes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{}, nil)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)
		f.recorder.On("Latest", mock.Anything, "territory-optimization").Return(nil, nil)
		f.updater.On("ApplyGroups", mock.Anything, "territory-optimization", mock.Anything).
			Return(false, nil)

		result, err := f.handler.Handle(context.Background(), validCommand())
		require.NoError(t, err)
		assert.False(t, result.Applied)

		f.eventBus.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)
		f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unchanged grouping skips the write", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
				applyFact(t, "r1", "B"),
			}, nil)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)

		previous, err := versioning.NewGroupingVersion("previous-run", map[int]map[string]string{
			0: {"A": "Territory A", "B": "Territory B"},
		})
		require.NoError(t, err)
		f.recorder.On("Latest", mock.Anything, "territory-optimization").Return(&previous, nil)

		result, err := f.handler.Handle(context.Background(), validCommand())
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, previous.Checksum, result.Checksum)

		f.updater.AssertNotCalled(t, "ApplyGroups", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("force reapplies an unchanged grouping", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
			}, nil)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)
		f.updater.On("ApplyGroups", mock.Anything, "territory-optimization", mock.Anything).
			Return(true, nil)
		f.recorder.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.eventBus.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)

		cmd := validCommand()
		cmd.Force = true

		result, err := f.handler.Handle(context.Background(), cmd)
		require.NoError(t, err)
		assert.True(t, result.Applied)

		f.recorder.AssertNotCalled(t, "Latest", mock.Anything, mock.Anything)
		f.updater.AssertExpectations(t)
	})

	t.Run("dry run skips lock, updater and events", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
			}, nil)

		cmd := validCommand()
		cmd.DryRun = true

		result, err := f.handler.Handle(context.Background(), cmd)
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.False(t, result.Applied)
		assert.Equal(t, 1, result.GroupCount)

		f.locker.AssertNotCalled(t, "AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.updater.AssertNotCalled(t, "ApplyGroups", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lock contention aborts the run", func(t *testing.T) {
		f := newFixture(t)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, pkgerrors.NewConflictError("lock already held"))

		_, err := f.handler.Handle(context.Background(), validCommand())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))

		f.reader.AssertNotCalled(t, "FetchMemberships", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("updater failure propagates", func(t *testing.T) {
		f := newFixture(t)
		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
			}, nil)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)
		f.recorder.On("Latest", mock.Anything, mock.Anything).Return(nil, nil)

		upstream := pkgerrors.NewUpstreamError("scheduling job", assert.AnError)
		f.updater.On("ApplyGroups", mock.Anything, mock.Anything, mock.Anything).
			Return(false, upstream)

		_, err := f.handler.Handle(context.Background(), validCommand())
		require.ErrorIs(t, err, upstream)
		f.lock.AssertExpectations(t)
	})

	t.Run("oversized group aborts and raises a violation event", func(t *testing.T) {
		f := newFixture(t)

		cfg := domainconfig.DefaultDomainConfig()
		cfg.MaxGroupSize = 2
		grouping := services.NewGroupingService(f.reader, cfg, zap.NewNop())
		handler := NewApplyGroupsHandler(
			grouping, f.updater, f.eventBus, f.locker, f.recorder,
			cfg, observability.NewTracer("test", false), zap.NewNop(),
		)

		f.reader.On("FetchMemberships", mock.Anything, mock.Anything, mock.Anything).
			Return([]entities.MembershipFact{
				applyFact(t, "r1", "A"),
				applyFact(t, "r1", "B"),
				applyFact(t, "r2", "B"),
				applyFact(t, "r2", "C"),
			}, nil)
		f.locker.On("AcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(f.lock, nil)
		f.lock.On("Release", mock.Anything).Return(nil)
		f.eventBus.On("Publish", mock.Anything, mock.MatchedBy(func(event events.DomainEvent) bool {
			return event.GetEventType() == "grouping.size_violation"
		})).Return(nil)

		_, err := handler.Handle(context.Background(), validCommand())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsSizeViolation(err))

		f.updater.AssertNotCalled(t, "ApplyGroups", mock.Anything, mock.Anything, mock.Anything)
		f.eventBus.AssertExpectations(t)
	})

	t.Run("missing job name fails validation", func(t *testing.T) {
		f := newFixture(t)
		cmd := validCommand()
		cmd.JobName = ""

		_, err := f.handler.Handle(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("inverted horizon fails validation", func(t *testing.T) {
		f := newFixture(t)
		cmd := validCommand()
		cmd.HorizonStart = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		cmd.HorizonEnd = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		_, err := f.handler.Handle(context.Background(), cmd)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}
