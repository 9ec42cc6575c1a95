// Package api provides the HTTP API for GreenNav.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/api/handler"
	"github.com/greennav/greennav/internal/api/middleware"
	"github.com/greennav/greennav/internal/exposure"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	Metrics         *middleware.Metrics
	ProviderMetrics *middleware.ProviderMetrics

	// CORSAllowedOrigins defaults to "*".
	CORSAllowedOrigins []string
	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// Air holds the air quality collaborators. Its Scorer and Logger are replaced by
	// the fields of this config.
	Air        handler.AirHandlerConfig
	Comparator handler.Comparator
	Scorer     exposure.Scorer
	Ops        handler.OpsHandlerConfig

	// TokenValidator guards /admin; admin routes are not mounted when it or Flags is nil.
	TokenValidator middleware.TokenValidator
	Flags          handler.FlagService
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "greennav-api"
	}
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-Id"}),
		handlers.ExposedHeaders([]string{"X-Request-Id", "Retry-After"}),
	))
	r.Use(middleware.SecurityHeaders) // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON) // JSON content type

	// Handlers report fallbacks to the provider metrics when present.
	airCfg := cfg.Air
	var fallbacks handler.FallbackRecorder
	if cfg.ProviderMetrics != nil {
		fallbacks = cfg.ProviderMetrics
		if airCfg.Fallbacks == nil {
			airCfg.Fallbacks = fallbacks
		}
	}
	airCfg.Logger = cfg.Logger
	airCfg.Scorer = cfg.Scorer

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	airHandler := handler.NewAirHandler(airCfg)
	routeHandler := handler.NewRouteHandler(cfg.Comparator, fallbacks, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cfg.Scorer)

	// Rate limits for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// Liveness endpoints are never rate limited.
	r.Get("/", opsHandler.Root)
	r.Get("/health", opsHandler.Liveness)

	r.Route("/ops", func(r chi.Router) {
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
	})

	// Single-point endpoints
	r.Group(func(r chi.Router) {
		r.Use(standardRateLimit)
		r.Get("/test-live-data", airHandler.TestLiveData)
		r.Get("/analyze-air", airHandler.AnalyzeAir)
		r.Get("/predict", airHandler.Predict)
	})

	// Fan-out endpoints: grid, schedule and routing calls per request
	r.Group(func(r chi.Router) {
		r.Use(expensiveRateLimit)
		r.Get("/heatmap-data", airHandler.HeatmapData)
		r.Get("/scheduler-advice", airHandler.SchedulerAdvice)
		r.With(middleware.RequireJSON).Post("/compare-routes", routeHandler.CompareRoutes)
		r.With(middleware.RequireJSON).Post("/compare-routes/multi", routeHandler.CompareMany)
	})

	r.Route("/metadata", func(r chi.Router) {
		r.Use(standardRateLimit)
		r.Get("/activities", metadataHandler.ListActivities)
		r.Get("/bands", metadataHandler.ListBands)
	})

	if cfg.TokenValidator != nil && cfg.Flags != nil {
		featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags, cfg.Logger)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
			r.Use(middleware.RateLimitBySubject(middleware.AdminRateLimit))

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
			})
		})
	}

	return r
}
