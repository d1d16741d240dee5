package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/flight-tracker/pkg/logger"
)

// Router is the status API router
type Router struct {
	handler        *Handler
	middleware     *Middleware
	allowedOrigins []string
	logger         *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(status StatusProvider, snapshots SnapshotProvider, allowedOrigins []string, logger *logger.Logger) *Router {
	return &Router{
		handler:        NewHandler(status, snapshots, logger),
		middleware:     NewMiddleware(logger),
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.allowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/aircraft", r.handler.GetAllAircraft)
		router.Get("/wx", r.handler.GetWeatherData)
	})

	router.Handle("/metrics", promhttp.Handler())

	return router
}
