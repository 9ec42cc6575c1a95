package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/pkg/polyline"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// StraightLineMinutes is the travel time assigned to straight-line fallbacks (default: 10).
	StraightLineMinutes float64
}

// Service validates waypoints and degrades to straight lines when the provider fails.
// Routes are not cached.
type Service struct {
	provider            Provider
	logger              zerolog.Logger
	straightLineMinutes float64
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	minutes := cfg.StraightLineMinutes
	if minutes == 0 {
		minutes = 10.0
	}

	return &Service{
		provider:            cfg.Provider,
		logger:              cfg.Logger,
		straightLineMinutes: minutes,
	}
}

// Route returns the provider's route through waypoints, or an error.
func (s *Service) Route(ctx context.Context, waypoints []Coordinate) (*Route, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	for i, wp := range waypoints {
		if err := ValidateCoordinate(wp); err != nil {
			return nil, &Error{
				Provider: s.ProviderName(),
				Code:     "INVALID_WAYPOINT",
				Message:  fmt.Sprintf("invalid waypoint %d", i),
				Err:      err,
			}
		}
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	route, err := s.provider.Route(ctx, waypoints)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Int("waypoints", len(waypoints)).
			Float64("origin_lat", waypoints[0].Lat).
			Float64("origin_lon", waypoints[0].Lon).
			Msg("route lookup failed")
		return nil, err
	}

	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Int("points", len(route.Path)).
		Float64("duration_min", route.DurationMinutes).
		Msg("route fetched")
	return route, nil
}

// RouteOrStraightLine returns the direct route from origin to destination, or the
// straight-line fallback on any failure.
func (s *Service) RouteOrStraightLine(ctx context.Context, origin, destination Coordinate) *Route {
	route, err := s.Route(ctx, []Coordinate{origin, destination})
	if err != nil {
		return s.StraightLine(origin, destination)
	}
	return route
}

// StraightLine returns the 2-point fallback path with the fixed fallback duration.
func (s *Service) StraightLine(origin, destination Coordinate) *Route {
	path := []Coordinate{origin, destination}
	return &Route{
		Path:            path,
		DurationMinutes: s.straightLineMinutes,
		DistanceMeters:  polyline.Length(path),
		Provider:        StraightLineProvider,
		Fallback:        true,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}
