// Package prediction builds the model feature row for a location and hour and
// turns model output into a predicted AQI.
package prediction

import (
	"context"
	"errors"
	"time"

	"github.com/greennav/greennav/internal/weather"
)

// Sentinel errors for prediction operations.
var (
	// ErrModelUnavailable indicates no model is loaded or the model was switched off.
	ErrModelUnavailable = errors.New("prediction model unavailable")
	// ErrInferenceFailed indicates the model was called but did not produce a value.
	ErrInferenceFailed = errors.New("model inference failed")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidHour indicates an hour outside 0-23.
	ErrInvalidHour = errors.New("hour must be between 0 and 23")
	// ErrFeatureMismatch indicates a model artifact trained on a different feature order.
	ErrFeatureMismatch = errors.New("model features do not match the feature row")
)

// Constant inputs the model was trained with.
const (
	PrecipitationMM = 0.0
	PressureMSLhPa  = 1013.0
	DefaultLagAQI   = 50.0
)

// FeatureNames is the column order the model was trained on.
var FeatureNames = []string{
	"Latitude",
	"Longitude",
	"Hour",
	"Day_of_Week",
	"Month",
	"Temp_2m_C",
	"Humidity_Percent",
	"Wind_Speed_10m_kmh",
	"Precipitation_mm",
	"Pressure_MSL_hPa",
	"Is_Daytime",
	"AQI_lag_24h",
	"Crop_Burning_Season",
}

// FeatureRow is one model input. Field order matches FeatureNames.
type FeatureRow struct {
	Latitude          float64
	Longitude         float64
	Hour              int
	DayOfWeek         int // Monday = 0
	Month             int
	TemperatureC      float64
	HumidityPercent   float64
	WindSpeedKmh      float64
	PrecipitationMM   float64
	PressureMSLhPa    float64
	IsDaytime         bool
	AQILag24h         float64
	CropBurningSeason bool
}

// BuildFeatureRow assembles the row for a location. Only the hour is taken from
// hour; day of week and month always come from now.
func BuildFeatureRow(lat, lon float64, now time.Time, hour int, sample weather.Sample, lagAQI float64) FeatureRow {
	month := int(now.Month())
	return FeatureRow{
		Latitude:          lat,
		Longitude:         lon,
		Hour:              hour,
		DayOfWeek:         (int(now.Weekday()) + 6) % 7,
		Month:             month,
		TemperatureC:      sample.TemperatureC,
		HumidityPercent:   sample.HumidityPercent,
		WindSpeedKmh:      sample.WindSpeedKmh,
		PrecipitationMM:   PrecipitationMM,
		PressureMSLhPa:    PressureMSLhPa,
		IsDaytime:         hour >= 6 && hour <= 18,
		AQILag24h:         lagAQI,
		CropBurningSeason: month == 10 || month == 11,
	}
}

// Values returns the row as a vector in FeatureNames order.
func (r FeatureRow) Values() []float64 {
	return []float64{
		r.Latitude,
		r.Longitude,
		float64(r.Hour),
		float64(r.DayOfWeek),
		float64(r.Month),
		r.TemperatureC,
		r.HumidityPercent,
		r.WindSpeedKmh,
		r.PrecipitationMM,
		r.PressureMSLhPa,
		boolToFloat(r.IsDaytime),
		r.AQILag24h,
		boolToFloat(r.CropBurningSeason),
	}
}

// Names returns a copy of FeatureNames.
func Names() []string {
	out := make([]string, len(FeatureNames))
	copy(out, FeatureNames)
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

//go:generate mockgen -destination=mock_prediction/mock_model.go -package=mock_prediction github.com/greennav/greennav/internal/prediction Model

// Model is a trained regressor that maps a feature row to an AQI.
type Model interface {
	Predict(ctx context.Context, row FeatureRow) (float64, error)
	// Name identifies the model in logs and prediction records.
	Name() string
}

// Result is a prediction with the inputs it was made from.
type Result struct {
	AQI      float64
	Model    string
	Features FeatureRow
	Weather  weather.Sample

	// Fallback is set when AQI is the neutral default rather than model output.
	Fallback bool
	Reason   string
}
