package handlers

import (
	"net/http"

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/middleware"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/service/certification"
	"awsugmdu-backend/internal/service/sprint"
	"awsugmdu-backend/internal/service/store"
	"awsugmdu-backend/internal/service/user"
	"awsugmdu-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Services are the route groups a router can serve.
type Services struct {
	Sprints        sprint.Service
	Certifications certification.Service
	Store          store.Service
	Users          user.Service
}

// Router creates and configures the HTTP router
type Router struct {
	cfg      *config.Config
	services Services
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, services Services, metrics *observability.Collector, logger *zap.Logger) *Router {
	return &Router{cfg: cfg, services: services, metrics: metrics, logger: logger}
}

// Setup configures middleware and the route groups of the configured API
// surface.
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.StripStage())
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Identity(rt.logger))
	router.Use(middleware.Logger(rt.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(rt.metrics.Middleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)

	b := base{logger: rt.logger, debugErrors: rt.cfg.DebugErrors}
	if rt.cfg.Serves(config.SurfaceSprints) {
		router.Route("/sprints", NewSprintHandler(rt.services.Sprints, b).Routes)
	}
	if rt.cfg.Serves(config.SurfaceCertificationGroups) {
		router.Route("/certification-groups", NewCertificationHandler(rt.services.Certifications, b).Routes)
	}
	if rt.cfg.Serves(config.SurfaceStore) {
		router.Route("/store", NewStoreHandler(rt.services.Store, b).Routes)
	}
	if rt.cfg.Serves(config.SurfaceUsers) {
		router.Route("/users", NewUserHandler(rt.services.Users, b).Routes)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"surface": rt.cfg.APISurface,
	})
}
