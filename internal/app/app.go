// Package app assembles the GreenNav service graph from process configuration. The
// API server, the worker and the CLI all build their collaborators here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/airquality"
	"github.com/greennav/greennav/internal/airquality/waqi"
	"github.com/greennav/greennav/internal/comparator"
	"github.com/greennav/greennav/internal/config"
	"github.com/greennav/greennav/internal/database"
	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/forecast"
	"github.com/greennav/greennav/internal/prediction"
	"github.com/greennav/greennav/internal/prediction/linear"
	"github.com/greennav/greennav/internal/prediction/remote"
	"github.com/greennav/greennav/internal/provider/resilience"
	"github.com/greennav/greennav/internal/recorder"
	"github.com/greennav/greennav/internal/routing"
	"github.com/greennav/greennav/internal/routing/osrm"
	"github.com/greennav/greennav/internal/weather"
	"github.com/greennav/greennav/internal/weather/openmeteo"
)

// RecorderMode selects where predictions are recorded.
type RecorderMode int

const (
	// RecordAuto publishes to Pub/Sub when configured, else writes to Postgres when
	// the database is enabled, else discards.
	RecordAuto RecorderMode = iota
	// RecordDirect always writes to Postgres; the worker uses it.
	RecordDirect
	// RecordNone discards predictions.
	RecordNone
)

// Options tunes Build for one binary.
type Options struct {
	// OnResult observes every upstream call.
	OnResult resilience.ResultHook
	Recording RecorderMode
}

// Services is the assembled graph.
type Services struct {
	Config   config.Config
	Registry *resilience.Registry
	DB       *pgxpool.Pool

	Flags      *featureflags.Service
	Scorer     exposure.Scorer
	Weather    *weather.Service
	AirQuality *airquality.Service
	Routing    *routing.Service
	Prediction *prediction.Service
	Forecast   *forecast.Service
	Comparator *comparator.Service
	Recorder   recorder.Recorder

	// ModelName is empty when no model could be loaded.
	ModelName string

	closers []func() error
}

// Build connects to the database when enabled and wires every service. Close must be
// called on the result.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts Options) (*Services, error) {
	t := cfg.Tunables
	s := &Services{
		Config:   cfg,
		Registry: resilience.NewRegistry(),
		Scorer:   exposure.Scorer{UnknownFactor: t.UnknownActivityFactor},
	}

	if cfg.DatabaseEnabled || opts.Recording == RecordDirect {
		if err := s.connect(ctx, logger); err != nil {
			return nil, err
		}
	}

	rec, err := s.buildRecorder(ctx, cfg, logger, opts.Recording)
	if err != nil {
		_ = s.Close() //nolint:errcheck // best effort cleanup
		return nil, err
	}
	s.Recorder = rec
	_, discarding := rec.(recorder.Nop)

	var flagRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if s.DB != nil {
		flagRepo = featureflags.NewPostgresRepository(s.DB)
	}
	s.Flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository:   flagRepo,
		Logger:       logger,
		DefaultFlags: featureflags.DefaultFlags(!discarding),
	})

	s.Weather = weather.NewService(weather.ServiceConfig{
		Provider: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.OpenMeteoBaseURL,
			Timeout:    cfg.WeatherTimeout,
			MaxRetries: cfg.ProviderMaxRetries,
			Registry:   s.Registry,
			OnResult:   opts.OnResult,
			Logger:     logger,
		}),
		Logger: logger,
	})

	var aqProvider airquality.Provider
	if cfg.WAQIAPIKey != "" {
		aqProvider = waqi.NewClient(waqi.ClientConfig{
			Token:      cfg.WAQIAPIKey,
			BaseURL:    cfg.WAQIBaseURL,
			MaxRetries: cfg.ProviderMaxRetries,
			Registry:   s.Registry,
			OnResult:   opts.OnResult,
			Logger:     logger,
		})
	} else {
		logger.Warn().Msg("WAQI_API_KEY not set, live AQI lookups will use the fallback value")
	}
	s.AirQuality = airquality.NewService(airquality.ServiceConfig{
		Provider:   aqProvider,
		Flags:      s.Flags,
		Logger:     logger,
		DefaultAQI: t.DefaultAQIFallback,
		LagFactor:  t.LagAQIFactor,
	})

	s.Routing = routing.NewService(routing.ServiceConfig{
		Provider: osrm.NewClient(osrm.ClientConfig{
			BaseURL:    cfg.OSRMBaseURL,
			Profile:    cfg.OSRMProfile,
			Timeout:    cfg.RoutingTimeout,
			MaxRetries: cfg.ProviderMaxRetries,
			Registry:   s.Registry,
			OnResult:   opts.OnResult,
			Logger:     logger,
		}),
		Logger:              logger,
		StraightLineMinutes: t.StraightLineMinutes,
	})

	model := s.loadModel(cfg, logger, opts.OnResult)
	s.Prediction = prediction.NewService(prediction.ServiceConfig{
		Model:       model,
		Weather:     s.Weather,
		Lag:         s.AirQuality,
		Flags:       s.Flags,
		Recorder:    s.Recorder,
		Logger:      logger,
		FallbackAQI: t.DefaultAQIFallback,
	})

	s.Forecast = forecast.NewService(forecast.ServiceConfig{
		Predictor:     s.Prediction,
		Logger:        logger,
		Concurrency:   cfg.ForecastConcurrency,
		StepDegrees:   t.HeatmapStepDegrees,
		RadiusSteps:   t.HeatmapRadiusSteps,
		Hours:         t.ScheduleHours,
		SafeThreshold: t.SafeAQIThreshold,
	})

	s.Comparator = comparator.NewService(comparator.ServiceConfig{
		Routes:              s.Routing,
		AQI:                 s.AirQuality,
		Flags:               s.Flags,
		Scorer:              s.Scorer,
		Logger:              logger,
		FallbackAQI:         t.DefaultAQIFallback,
		DetourOffsetDegrees: t.DetourOffsetDegrees,
		CleanAQIDiscount:    t.CleanAQIDiscount,
		DetourTimeFactor:    t.DetourTimeFactor,
	})

	return s, nil
}

func (s *Services) connect(ctx context.Context, logger zerolog.Logger) error {
	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		return err
	}
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool, logger, recorder.Schema, featureflags.Schema); err != nil {
		pool.Close()
		return err
	}
	s.DB = pool
	s.closers = append(s.closers, func() error { pool.Close(); return nil })

	logger.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")
	return nil
}

func (s *Services) buildRecorder(ctx context.Context, cfg config.Config, logger zerolog.Logger, mode RecorderMode) (recorder.Recorder, error) {
	switch {
	case mode == RecordNone:
		return recorder.Nop{}, nil
	case mode == RecordDirect:
		return recorder.NewPostgres(s.DB), nil
	case cfg.PubSubEnabled():
		pub, err := recorder.NewPublisher(ctx, recorder.PublisherConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pub.Close)
		logger.Info().Str("topic", cfg.PubSubTopic).Msg("recording predictions via pubsub")
		return pub, nil
	case s.DB != nil:
		logger.Info().Msg("recording predictions to postgres")
		return recorder.NewPostgres(s.DB), nil
	default:
		return recorder.Nop{}, nil
	}
}

// loadModel returns nil when neither backend is available; predictions then use the
// fallback AQI.
func (s *Services) loadModel(cfg config.Config, logger zerolog.Logger, onResult resilience.ResultHook) prediction.Model {
	if cfg.ModelEndpoint != "" {
		client := remote.NewClient(remote.ClientConfig{
			Endpoint:   cfg.ModelEndpoint,
			MaxRetries: cfg.ProviderMaxRetries,
			Registry:   s.Registry,
			OnResult:   onResult,
			Logger:     logger,
		})
		s.ModelName = client.Name()
		logger.Info().Str("endpoint", cfg.ModelEndpoint).Msg("using remote model")
		return client
	}

	model, err := linear.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.ModelPath).Msg("model unavailable, predictions will use the fallback AQI")
		return nil
	}
	s.ModelName = model.Name()
	logger.Info().Str("path", model.Source()).Msg("model loaded")
	return model
}

// Close releases the database pool and Pub/Sub clients.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
