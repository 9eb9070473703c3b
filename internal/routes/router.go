package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"infinite-experiment/fmsuplink/internal/api"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/middleware"
)

// RegisterRoutes builds the HTTP handler of the server
func RegisterRoutes(deps *api.Dependencies, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	serverCfg := deps.Config.Server
	limiter := middleware.NewRateLimiter(serverCfg.RateLimitRPS, serverCfg.RateLimitBurst)

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))
	r.Use(middleware.Logging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   serverCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	r.Get("/healthCheck", api.HealthCheckHandler(deps.HealthChecks(), upSince))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(limited chi.Router) {
		limited.Use(limiter.Middleware)
		RegisterAPIRoutes(limited, APIHandlers{
			Uplinker:          deps.Services.Uplink,
			Jobs:              deps.Services.Jobs,
			History:           deps.HistoryReader(),
			NavCache:          deps.Services.NavCache,
			Signer:            deps.Services.Signer,
			DefaultProcedures: deps.Config.Uplink.Procedures,
		})
	})

	return r
}
