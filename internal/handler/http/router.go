package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Muhsiinn/JonasV2/internal/service"
	"github.com/Muhsiinn/JonasV2/pkg/health"
	"github.com/Muhsiinn/JonasV2/pkg/middleware"
)

const serviceName = "auth"

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(authService, logger)
	userHandler := NewUserHandler(authService, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		// Logout requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService.Authorize))
			r.Post("/logout", authHandler.Logout)
		})
	})

	// User endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(authService.Authorize))

		r.Get("/me", userHandler.Me)
	})

	return r
}
