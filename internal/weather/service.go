package weather

import (
	"context"
	"math"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// Current fetches current conditions for a location.
	Current(ctx context.Context, lat, lon float64) (*Sample, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger
}

// Service looks up weather samples. Samples are never cached; each prediction
// gets a fresh reading.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Current returns the provider's current sample or an error.
func (s *Service) Current(ctx context.Context, lat, lon float64) (*Sample, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	sample, err := s.provider.Current(ctx, lat, lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("weather lookup failed")
		return nil, err
	}
	return sample, nil
}

// CurrentOrFallback never fails: provider errors yield FallbackSample.
func (s *Service) CurrentOrFallback(ctx context.Context, lat, lon float64) Sample {
	sample, err := s.Current(ctx, lat, lon)
	if err != nil {
		return FallbackSample()
	}
	return *sample
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
