package airquality

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/featureflags"
)

// Provider defines the interface for live air quality feeds.
type Provider interface {
	// Live returns the nearest station reading for a location.
	Live(ctx context.Context, lat, lon float64) (*Reading, error)

	// Name returns the provider name for logging.
	Name() string
}

// Flags reports whether a runtime toggle is on.
type Flags interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	Provider Provider
	Flags    Flags
	Logger   zerolog.Logger

	// DefaultAQI is returned by HistoricalLag without a live reading. Default 50.
	DefaultAQI float64
	// LagFactor scales a live reading into the 24h-lag estimate. Default 0.95.
	LagFactor float64
}

// Service wraps the live feed with flag checks and fallbacks.
type Service struct {
	provider   Provider
	flags      Flags
	logger     zerolog.Logger
	defaultAQI float64
	lagFactor  float64
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	defaultAQI := cfg.DefaultAQI
	if defaultAQI == 0 {
		defaultAQI = 50.0
	}
	lagFactor := cfg.LagFactor
	if lagFactor == 0 {
		lagFactor = 0.95
	}

	return &Service{
		provider:   cfg.Provider,
		flags:      cfg.Flags,
		logger:     cfg.Logger,
		defaultAQI: defaultAQI,
		lagFactor:  lagFactor,
	}
}

// Live returns the current reading. It fails with ErrDisabled when the
// disable_live_aqi flag is set and with the provider's error otherwise.
func (s *Service) Live(ctx context.Context, lat, lon float64) (*Reading, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}
	if s.flags != nil && s.flags.IsEnabled(ctx, featureflags.FlagDisableLiveAQI) {
		return nil, ErrDisabled
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	reading, err := s.provider.Live(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("live AQI lookup failed")
		return nil, err
	}

	s.logger.Debug().
		Float64("aqi", reading.AQI).
		Str("city", reading.City).
		Msg("live AQI fetched")
	return reading, nil
}

// AQI returns the live AQI, satisfying lookups that only need the number.
func (s *Service) AQI(ctx context.Context, lat, lon float64) (float64, error) {
	reading, err := s.Live(ctx, lat, lon)
	if err != nil {
		return 0, err
	}
	return reading.AQI, nil
}

// HistoricalLag estimates the AQI 24 hours ago as the live value times the lag
// factor. Without a live reading it returns the default AQI and false.
func (s *Service) HistoricalLag(ctx context.Context, lat, lon float64) (float64, bool) {
	reading, err := s.Live(ctx, lat, lon)
	if err != nil {
		return s.defaultAQI, false
	}
	return reading.AQI * s.lagFactor, true
}
