package di

import (
	"optigroup/application/commands/bus"
	commands_handlers "optigroup/application/commands/handlers"
	"optigroup/application/ports"
	querybus "optigroup/application/queries/bus"
	queries_handlers "optigroup/application/queries/handlers"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/infrastructure/config"
	"optigroup/interfaces/http/rest/middleware"
	"optigroup/pkg/observability"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	DomainConfig       *domainconfig.DomainConfig
	Logger             *zap.Logger
	MembershipReader   ports.MembershipReader
	JobUpdater         ports.SchedulingJobUpdater
	RunRecorder        ports.RunRecorder
	EventBus           ports.EventBus
	RunLocker          ports.RunLocker
	GroupingService    *services.GroupingService
	ApplyGroupsHandler *commands_handlers.ApplyGroupsHandler
	GetGroupingHandler *queries_handlers.GetGroupingHandler
	CommandBus         *bus.CommandBus
	QueryBus           *querybus.QueryBus
	Cache              ports.Cache
	Metrics            *observability.Metrics
	Tracer             *observability.Tracer
	AuthMiddleware     *middleware.AuthMiddleware
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideMembershipReader,
	ProvideJobUpdater,
	ProvideRunRecorder,
	ProvideEventBus,
	ProvideRunLocker,
	ProvideGroupingService,
	ProvideApplyGroupsHandler,
	ProvideGetGroupingHandler,
	ProvideMetrics,
	ProvideTracer,
	ProvideAuthMiddleware,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideInMemoryCache,
	wire.Struct(new(Container), "*"),
)
