package di

import (
	"context"
	"fmt"

	"optigroup/application/commands"
	"optigroup/application/commands/bus"
	commands_handlers "optigroup/application/commands/handlers"
	"optigroup/application/ports"
	"optigroup/application/queries"
	querybus "optigroup/application/queries/bus"
	queries_handlers "optigroup/application/queries/handlers"
	"optigroup/application/services"
	domainconfig "optigroup/domain/config"
	"optigroup/infrastructure/config"
	"optigroup/infrastructure/messaging/eventbridge"
	"optigroup/infrastructure/persistence/dynamodb"
	"optigroup/interfaces/http/rest/middleware"
	"optigroup/pkg/auth"
	"optigroup/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig derives the domain settings from the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideMembershipReader creates the membership fact source
func ProvideMembershipReader(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MembershipReader {
	return dynamodb.NewMembershipRepository(
		client,
		cfg.MembershipTable,
		cfg.HorizonIndex,
		logger,
	)
}

// ProvideJobUpdater creates the scheduling job updater
func ProvideJobUpdater(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SchedulingJobUpdater {
	return dynamodb.NewJobUpdater(client, cfg.JobTable, logger)
}

// ProvideRunRecorder creates the run history recorder
func ProvideRunRecorder(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RunRecorder {
	return dynamodb.NewRunHistory(client, cfg.JobTable, logger)
}

// ProvideEventBus creates an event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideRunLocker creates the per-job run locker
func ProvideRunLocker(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RunLocker {
	return dynamodb.NewDistributedLock(client, cfg.LockTable, logger)
}

// ProvideGroupingService creates the grouping pipeline service
func ProvideGroupingService(
	memberships ports.MembershipReader,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.GroupingService {
	return services.NewGroupingService(memberships, domainCfg, logger)
}

// ProvideApplyGroupsHandler creates the apply command handler
func ProvideApplyGroupsHandler(
	grouping *services.GroupingService,
	jobUpdater ports.SchedulingJobUpdater,
	eventBus ports.EventBus,
	locker ports.RunLocker,
	recorder ports.RunRecorder,
	domainCfg *domainconfig.DomainConfig,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *commands_handlers.ApplyGroupsHandler {
	return commands_handlers.NewApplyGroupsHandler(
		grouping, jobUpdater, eventBus, locker, recorder, domainCfg, tracer, logger)
}

// ProvideGetGroupingHandler creates the preview query handler
func ProvideGetGroupingHandler(
	grouping *services.GroupingService,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *queries_handlers.GetGroupingHandler {
	return queries_handlers.NewGetGroupingHandler(grouping, domainCfg, logger)
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics("", nil)
	}
	namespace := fmt.Sprintf("Optigroup/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideAuthMiddleware creates the authentication middleware. Lambda
// deployments get DynamoDB-backed rate limiters so counts are shared
// across concurrent instances; the server binary keeps them in memory.
func ProvideAuthMiddleware(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) (*middleware.AuthMiddleware, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		// Local development only; Validate rejects an empty secret in production.
		secret = "local-development-secret"
	}
	authCfg := middleware.AuthConfig{
		JWTSecret: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{"optigroup-api"},
	}
	if cfg.IsLambda {
		authCfg.IPLimiter = auth.NewIPRateLimiterWith(
			auth.NewDistributedIPRateLimiter(client, cfg.LockTable, 60))
		authCfg.UserLimiter = auth.NewUserRateLimiterWith(
			auth.NewDistributedUserRateLimiter(client, cfg.LockTable, 120))
	}
	return middleware.NewAuthMiddleware(authCfg, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("optigroup", cfg.EnableTracing)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// busLoggerAdapter bridges zap's sugared logger to the command bus logger
type busLoggerAdapter struct {
	sugar *zap.SugaredLogger
}

func (a *busLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.sugar.Infow(msg, keysAndValues...)
}

func (a *busLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.sugar.Errorw(msg, keysAndValues...)
}

// ProvideCommandBus creates a command bus with registered handlers. The bus
// is the fire-and-forget entry point used by scheduled invocations; callers
// that need the run result use the apply handler directly.
func ProvideCommandBus(
	applyHandler *commands_handlers.ApplyGroupsHandler,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()

	var handler bus.CommandHandler = &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			applyCmd, ok := cmd.(commands.ApplyGroupsCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := applyHandler.Handle(ctx, applyCmd)
			return err
		},
	}
	handler = bus.NewPipeline(
		bus.LoggingMiddleware(&busLoggerAdapter{logger.Sugar()}),
	).Execute(handler)

	commandBus.Register(commands.ApplyGroupsCommand{}, handler)

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	getGroupingHandler *queries_handlers.GetGroupingHandler,
	cache ports.Cache,
	metrics *observability.Metrics,
	cfg *config.Config,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()

	var handler querybus.QueryHandler = &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetGroupingQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getGroupingHandler.Handle(ctx, getQuery)
		},
	}

	handler = querybus.NewMetricsMiddleware(&metricsAdapter{metrics}).Wrap(handler)
	if cfg.PreviewTTL > 0 {
		handler = querybus.NewCachingMiddleware(cache, cfg.PreviewTTL).Wrap(handler)
	}

	queryBus.Register(queries.GetGroupingQuery{}, handler)

	return queryBus
}

// ProvideInMemoryCache creates a simple in-memory cache
// In production, this would be Redis or similar
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}

// metricsAdapter bridges observability.Metrics to the query bus interface
type metricsAdapter struct {
	metrics *observability.Metrics
}

func (a *metricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a *metricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}
