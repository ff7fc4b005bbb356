package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	commands_handlers "optigroup/application/commands/handlers"
	querybus "optigroup/application/queries/bus"
	"optigroup/infrastructure/config"
	"optigroup/interfaces/http/rest/handlers"
	"optigroup/interfaces/http/rest/middleware"
	pkgerrors "optigroup/pkg/errors"
	"optigroup/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	applyHandler *commands_handlers.ApplyGroupsHandler
	queryBus     *querybus.QueryBus
	metrics      *observability.Metrics
	authMW       *middleware.AuthMiddleware
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	applyHandler *commands_handlers.ApplyGroupsHandler,
	queryBus *querybus.QueryBus,
	metrics *observability.Metrics,
	authMW *middleware.AuthMiddleware,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:          cfg,
		applyHandler: applyHandler,
		queryBus:     queryBus,
		metrics:      metrics,
		authMW:       authMW,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.cfg.Environment != "production")
	groupingHandler := handlers.NewGroupingHandler(rt.applyHandler, rt.queryBus, errorHandler, rt.metrics, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		// Lambda deployments sit behind an API Gateway authorizer; the
		// server binary validates tokens itself.
		if rt.cfg.IsLambda {
			r.Use(rt.authMW.AuthenticateForLambda())
		} else {
			r.Use(rt.authMW.Authenticate())
		}

		r.Route("/groupings", func(r chi.Router) {
			r.Post("/preview", groupingHandler.Preview)
			r.With(rt.authMW.RequireRole("operator")).Post("/apply", groupingHandler.Apply)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
