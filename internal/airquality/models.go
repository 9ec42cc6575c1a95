// Package airquality looks up live AQI readings for a coordinate.
package airquality

import (
	"errors"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrMalformedResponse   = errors.New("malformed air quality response")
	ErrNoStation           = errors.New("no monitoring station reports an AQI for this location")
	ErrDisabled            = errors.New("live air quality lookups are disabled")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Reading is the AQI reported by the nearest monitoring station.
type Reading struct {
	AQI        float64   `json:"aqi"`
	City       string    `json:"city"`
	ObservedAt time.Time `json:"-"`
}

// Error carries provider detail for a failed lookup.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
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

// IsRetryable returns true if the failure was transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable)
}
