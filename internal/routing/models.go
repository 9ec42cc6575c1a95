// Package routing fetches road geometry and travel time between waypoints.
package routing

import (
	"context"
	"errors"
	"math"

	"github.com/greennav/greennav/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the public server throttled the request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrTooFewWaypoints indicates fewer than two waypoints were given.
	ErrTooFewWaypoints = errors.New("at least two waypoints are required")
	// ErrMalformedResponse indicates the provider answered with an unreadable body.
	ErrMalformedResponse = errors.New("malformed routing response")
)

// StraightLineProvider names routes produced without a routing provider.
const StraightLineProvider = "straight-line"

// Provider defines the interface for routing providers.
type Provider interface {
	// Route returns the best road route visiting the waypoints in order.
	Route(ctx context.Context, waypoints []Coordinate) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Coordinate represents a geographic point.
type Coordinate = polyline.Coordinate

// Route is an ordered path with its travel estimate.
type Route struct {
	Path            []Coordinate
	DurationMinutes float64
	DistanceMeters  float64
	Provider        string

	// Fallback is set for straight-line substitutes.
	Fallback bool
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// ValidateCoordinate checks that c is within latitude/longitude ranges.
func ValidateCoordinate(c Coordinate) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
