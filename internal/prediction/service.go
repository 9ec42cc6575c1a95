package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/recorder"
	"github.com/greennav/greennav/internal/weather"
)

// WeatherLookup returns current conditions for a location, or the static
// fallback sample when the lookup fails.
type WeatherLookup interface {
	CurrentOrFallback(ctx context.Context, lat, lon float64) weather.Sample
}

// LagLookup estimates the AQI 24 hours ago.
type LagLookup interface {
	HistoricalLag(ctx context.Context, lat, lon float64) (float64, bool)
}

// Flags reports whether a feature flag is enabled.
type Flags interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the prediction service.
type ServiceConfig struct {
	// Model may be nil when no artifact could be loaded.
	Model   Model
	Weather WeatherLookup
	Lag     LagLookup
	Flags   Flags

	// Recorder receives every prediction when record_predictions is on.
	Recorder recorder.Recorder
	Logger   zerolog.Logger

	// FallbackAQI is returned whenever the model cannot answer (default: 50).
	FallbackAQI float64

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service predicts AQI for a location and hour.
type Service struct {
	model       Model
	weather     WeatherLookup
	lag         LagLookup
	flags       Flags
	recorder    recorder.Recorder
	logger      zerolog.Logger
	fallbackAQI float64
	now         func() time.Time
}

// NewService creates a new prediction service.
func NewService(cfg ServiceConfig) *Service {
	fallback := cfg.FallbackAQI
	if fallback == 0 {
		fallback = 50.0
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rec := cfg.Recorder
	if rec == nil {
		rec = recorder.Nop{}
	}

	return &Service{
		model:       cfg.Model,
		weather:     cfg.Weather,
		lag:         cfg.Lag,
		flags:       cfg.Flags,
		recorder:    rec,
		logger:      cfg.Logger,
		fallbackAQI: fallback,
		now:         now,
	}
}

// Predict returns the model's AQI for lat/lon at hour, or at the current hour when
// hour is nil. The result is rounded to two decimals.
func (s *Service) Predict(ctx context.Context, lat, lon float64, hour *int) (*Result, error) {
	res, err := s.predict(ctx, lat, lon, hour)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PredictOrFallback never fails: any error yields the fallback AQI with Fallback set.
func (s *Service) PredictOrFallback(ctx context.Context, lat, lon float64, hour *int) Result {
	res, err := s.predict(ctx, lat, lon, hour)
	if err != nil {
		res.AQI = s.fallbackAQI
		res.Fallback = true
		res.Reason = err.Error()
	}
	return res
}

// FallbackAQI returns the neutral AQI used when the model cannot answer.
func (s *Service) FallbackAQI() float64 {
	return s.fallbackAQI
}

// ModelName returns the loaded model's name, or "none".
func (s *Service) ModelName() string {
	if s.model == nil {
		return "none"
	}
	return s.model.Name()
}

// predict returns a Result carrying whatever inputs were assembled, even on error.
func (s *Service) predict(ctx context.Context, lat, lon float64, hour *int) (Result, error) {
	res := Result{Model: s.ModelName()}

	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return res, ErrInvalidCoordinates
	}

	now := s.now()
	h := now.Hour()
	if hour != nil {
		if *hour < 0 || *hour > 23 {
			return res, ErrInvalidHour
		}
		h = *hour
	}

	if s.model == nil {
		return res, ErrModelUnavailable
	}
	if s.enabled(ctx, featureflags.FlagForceModelFallback) {
		return res, fmt.Errorf("%w: forced by flag %s", ErrModelUnavailable, featureflags.FlagForceModelFallback)
	}

	res.Weather = s.currentWeather(ctx, lat, lon)

	lag := DefaultLagAQI
	if s.lag != nil && s.enabled(ctx, featureflags.FlagLiveLagFeature) {
		if v, ok := s.lag.HistoricalLag(ctx, lat, lon); ok {
			lag = v
		}
	}

	res.Features = BuildFeatureRow(lat, lon, now, h, res.Weather, lag)

	aqi, err := s.model.Predict(ctx, res.Features)
	if err != nil {
		s.logger.Error().Err(err).
			Str("model", res.Model).
			Float64("lat", lat).
			Float64("lon", lon).
			Int("hour", h).
			Msg("model inference failed")
		err = fmt.Errorf("%w: %w", ErrInferenceFailed, err)
		s.record(ctx, res, s.fallbackAQI, err.Error())
		return res, err
	}

	res.AQI = exposure.Round2(aqi)
	s.record(ctx, res, res.AQI, "")
	return res, nil
}

func (s *Service) currentWeather(ctx context.Context, lat, lon float64) weather.Sample {
	if s.weather == nil {
		return weather.FallbackSample()
	}
	return s.weather.CurrentOrFallback(ctx, lat, lon)
}

func (s *Service) record(ctx context.Context, res Result, aqi float64, reason string) {
	if !s.enabled(ctx, featureflags.FlagRecordPredictions) {
		return
	}

	rec := recorder.New(recorder.Record{
		Latitude:     res.Features.Latitude,
		Longitude:    res.Features.Longitude,
		FeatureNames: Names(),
		Features:     res.Features.Values(),
		PredictedAQI: aqi,
		Fallback:     reason != "",
		Reason:       reason,
		Model:        res.Model,
	})
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("failed to record prediction")
	}
}

func (s *Service) enabled(ctx context.Context, key string) bool {
	return s.flags != nil && s.flags.IsEnabled(ctx, key)
}
