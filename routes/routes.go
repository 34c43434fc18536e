package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/dtn-ai-router/app"
	"github.com/upb/dtn-ai-router/handlers"
	routermw "github.com/upb/dtn-ai-router/middleware"
	"github.com/upb/dtn-ai-router/utils"
)

// SetupRoutes configures the public API: POST /api/request and GET /health
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(routermw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	requestHandler := handlers.NewRequestHandler(deps.Dispatcher, deps.Config.Server.MaxBodyBytes, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.Registry, deps.Logger)

	r.Get("/health", healthHandler.HandleHealth)
	r.Post("/api/request", requestHandler.HandleRequest)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w, "")
	})

	return r
}

// SetupAdminRoutes configures the operator listener: Prometheus metrics,
// dispatch log lookup and pool counters. It is never exposed on the public port.
func SetupAdminRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	adminHandler := handlers.NewAdminHandler(deps.Repositories.DispatchLog, deps.Pool, deps.Logger)
	r.Get("/dispatch-log/{requestId}", adminHandler.HandleDispatchLog)
	r.Get("/debug/pool", adminHandler.HandlePoolStats)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
