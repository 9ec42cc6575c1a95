// Package main provides the entrypoint for the GreenNav API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/api"
	"github.com/greennav/greennav/internal/api/handler"
	"github.com/greennav/greennav/internal/api/middleware"
	"github.com/greennav/greennav/internal/app"
	"github.com/greennav/greennav/internal/auth"
	"github.com/greennav/greennav/internal/config"
	"github.com/greennav/greennav/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "greennav-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting GreenNav API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFrom(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	services, err := app.Build(ctx, cfg, log, app.Options{OnResult: providerMetrics.RecordRequest})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build services")
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close services")
		}
	}()

	var checks []handler.ReadinessCheck
	if services.DB != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "database", Check: services.DB.Ping})
	}

	// Admin routes need a signing key; without one they are not mounted.
	var tokens middleware.TokenValidator
	if cfg.JWTSigningKey != "" {
		tokens = auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set, admin API disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		ProviderMetrics:    providerMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequireTLS:         cfg.RequireTLS,
		Air: handler.AirHandlerConfig{
			Live:       services.AirQuality,
			Predictor:  services.Prediction,
			Forecaster: services.Forecast,
		},
		Comparator: services.Comparator,
		Scorer:     services.Scorer,
		Ops: handler.OpsHandlerConfig{
			Version:   Version,
			BuildTime: BuildTime,
			ModelName: services.ModelName,
			Registry:  services.Registry,
			Flags:     services.Flags,
			Checks:    checks,
			Pools:     map[string]handler.MetricsSource{"forecast": services.Forecast},
		},
		TokenValidator: tokens,
		Flags:          services.Flags,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("model", services.ModelName).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
