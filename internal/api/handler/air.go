// Package handler provides HTTP handlers for the GreenNav API.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/advisory"
	"github.com/greennav/greennav/internal/airquality"
	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/api/response"
	"github.com/greennav/greennav/internal/exposure"
	"github.com/greennav/greennav/internal/forecast"
	"github.com/greennav/greennav/internal/prediction"
)

// Default coordinates of GET /test-live-data (New Delhi).
const (
	DefaultLat = 28.6139
	DefaultLon = 77.2090
)

// DefaultDurationMinutes is the exposure window of GET /analyze-air when none is given.
const DefaultDurationMinutes = 60

// LiveAQI looks up the current station reading.
type LiveAQI interface {
	Live(ctx context.Context, lat, lon float64) (*airquality.Reading, error)
}

// Predictor predicts AQI, substituting the fallback value on failure.
type Predictor interface {
	PredictOrFallback(ctx context.Context, lat, lon float64, hour *int) prediction.Result
}

// Forecaster fans predictions out over a grid and over the day.
type Forecaster interface {
	Heatmap(ctx context.Context, lat, lon float64) []forecast.HeatPoint
	Schedule(ctx context.Context, lat, lon float64) []forecast.Slot
}

// FallbackRecorder counts responses that used a substituted value.
type FallbackRecorder interface {
	RecordFallback(ctx context.Context, component, reason string)
}

type nopFallbacks struct{}

func (nopFallbacks) RecordFallback(context.Context, string, string) {}

// AirHandlerConfig holds the collaborators of AirHandler.
type AirHandlerConfig struct {
	Live       LiveAQI
	Predictor  Predictor
	Forecaster Forecaster
	Scorer     exposure.Scorer
	Fallbacks  FallbackRecorder
	Logger     zerolog.Logger
}

// AirHandler handles the air quality, prediction and forecast endpoints.
type AirHandler struct {
	live       LiveAQI
	predictor  Predictor
	forecaster Forecaster
	scorer     exposure.Scorer
	fallbacks  FallbackRecorder
	logger     zerolog.Logger
}

// NewAirHandler creates a new AirHandler.
func NewAirHandler(cfg AirHandlerConfig) *AirHandler {
	h := &AirHandler{
		live:       cfg.Live,
		predictor:  cfg.Predictor,
		forecaster: cfg.Forecaster,
		scorer:     cfg.Scorer,
		fallbacks:  cfg.Fallbacks,
		logger:     cfg.Logger,
	}
	if h.fallbacks == nil {
		h.fallbacks = nopFallbacks{}
	}
	return h
}

// TestLiveData handles GET /test-live-data - raw station reading.
func (h *AirHandler) TestLiveData(w http.ResponseWriter, r *http.Request) {
	params := newQueryParams(r.URL.Query())
	lat, lon := params.latLon(floatPtr(DefaultLat), floatPtr(DefaultLon))
	if !params.valid() {
		response.BadRequest(w, r, "invalid query parameters", params.errors)
		return
	}

	reading, err := h.live.Live(r.Context(), lat, lon)
	if err != nil {
		h.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("live AQI lookup failed")
		h.fallbacks.RecordFallback(r.Context(), "live_aqi", "lookup_failed")
		response.JSON(w, r, http.StatusOK, models.LiveData{
			Status:  "error",
			Message: "Could not fetch data from WAQI API. Check your .env key.",
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.LiveData{
		Status: "success",
		Data:   &models.LiveReading{AQI: reading.AQI, City: reading.City},
	})
}

// AnalyzeAir handles GET /analyze-air - live AQI, advisory and personal exposure.
func (h *AirHandler) AnalyzeAir(w http.ResponseWriter, r *http.Request) {
	params := newQueryParams(r.URL.Query())
	lat, lon := params.latLon(nil, nil)
	activity := params.str("activity", exposure.DefaultActivity)
	duration := params.integer("duration", DefaultDurationMinutes)
	if !params.valid() {
		response.BadRequest(w, r, "invalid query parameters", params.errors)
		return
	}

	reading, err := h.live.Live(r.Context(), lat, lon)
	if err != nil {
		h.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("live AQI lookup failed")
		h.fallbacks.RecordFallback(r.Context(), "live_aqi", "lookup_failed")
		response.JSON(w, r, http.StatusOK, models.ErrorBody{Error: "Could not fetch air quality data"})
		return
	}

	advice := advisory.Advise(reading.AQI)
	response.JSON(w, r, http.StatusOK, models.AnalyzeAir{
		Location: models.AnalyzeLocation{
			City:      reading.City,
			Latitude:  lat,
			Longitude: lon,
		},
		AirQuality: models.AnalyzeAirQuality{
			CurrentAQI:     reading.AQI,
			Status:         string(advice.Level),
			Recommendation: advice.Advice,
		},
		PersonalizedImpact: models.PersonalizedImpact{
			EstimatedExposureScore: h.scorer.Score(reading.AQI, float64(duration), activity),
			ActivityContext:        fmt.Sprintf("%s for %d minutes", activity, duration),
			FormulaUsed:            exposure.FormulaDescription,
		},
	})
}

// Predict handles GET /predict - model AQI for a point, optionally at another hour of today.
func (h *AirHandler) Predict(w http.ResponseWriter, r *http.Request) {
	params := newQueryParams(r.URL.Query())
	lat, lon := params.latLon(nil, nil)
	hour := params.optionalInt("hour", 0, 23)
	if !params.valid() {
		response.BadRequest(w, r, "invalid query parameters", params.errors)
		return
	}

	res := h.predictor.PredictOrFallback(r.Context(), lat, lon, hour)
	if res.Fallback {
		h.fallbacks.RecordFallback(r.Context(), "prediction", res.Reason)
	}

	advice := advisory.Advise(res.AQI)
	response.JSON(w, r, http.StatusOK, models.Prediction{
		Status: "success",
		MLResult: models.MLResult{
			PredictedAQI: res.AQI,
			Category:     string(advice.Level),
			Guidance:     advice.Advice,
			Model:        res.Model,
			Fallback:     res.Fallback,
		},
	})
}

// HeatmapData handles GET /heatmap-data - predicted AQI over a grid around the point.
func (h *AirHandler) HeatmapData(w http.ResponseWriter, r *http.Request) {
	params := newQueryParams(r.URL.Query())
	lat, lon := params.latLon(nil, nil)
	if !params.valid() {
		response.BadRequest(w, r, "invalid query parameters", params.errors)
		return
	}

	cells := h.forecaster.Heatmap(r.Context(), lat, lon)
	points := make([][3]float64, len(cells))
	fallbacks := 0
	for i, c := range cells {
		points[i] = [3]float64{c.Lat, c.Lon, c.AQI}
		if c.Fallback {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		h.fallbacks.RecordFallback(r.Context(), "heatmap", "prediction_fallback")
		h.logger.Debug().Int("fallback_cells", fallbacks).Int("cells", len(cells)).Msg("heatmap used fallback values")
	}

	response.JSON(w, r, http.StatusOK, models.Heatmap{HeatmapPoints: points})
}

// SchedulerAdvice handles GET /scheduler-advice - AQI at the probe hours of today.
func (h *AirHandler) SchedulerAdvice(w http.ResponseWriter, r *http.Request) {
	params := newQueryParams(r.URL.Query())
	lat, lon := params.latLon(nil, nil)
	if !params.valid() {
		response.BadRequest(w, r, "invalid query parameters", params.errors)
		return
	}

	slots := h.forecaster.Schedule(r.Context(), lat, lon)
	schedule := make([]models.ScheduleSlot, len(slots))
	for i, s := range slots {
		schedule[i] = models.ScheduleSlot{
			Hour:   s.Hour,
			AQI:    s.AQI,
			Status: string(s.Status),
			IsSafe: s.IsSafe,
		}
		if s.Fallback {
			h.fallbacks.RecordFallback(r.Context(), "schedule", "prediction_fallback")
		}
	}

	response.JSON(w, r, http.StatusOK, models.Schedule{Schedule: schedule})
}
