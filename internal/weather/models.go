// Package weather looks up current surface weather for the AQI model's feature row.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrMalformedResponse   = errors.New("malformed weather response")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Values substituted when the weather feed cannot be reached.
const (
	FallbackTemperatureC    = 25.0
	FallbackHumidityPercent = 50.0
	FallbackWindSpeedKmh    = 10.0
)

// Sample is a single current-conditions reading at a point.
type Sample struct {
	TemperatureC    float64
	HumidityPercent float64
	WindSpeedKmh    float64
	ObservedAt      time.Time

	// Fallback is set when the values are the fixed substitutes, not a reading.
	Fallback bool
}

// FallbackSample returns the substitute sample used when the provider fails.
func FallbackSample() Sample {
	return Sample{
		TemperatureC:    FallbackTemperatureC,
		HumidityPercent: FallbackHumidityPercent,
		WindSpeedKmh:    FallbackWindSpeedKmh,
		Fallback:        true,
	}
}

// Error carries provider detail for a failed weather lookup.
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
