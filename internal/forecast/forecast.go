// Package forecast fans predictions out over a grid around a point and over the
// probe hours of a day.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/advisory"
	"github.com/greennav/greennav/internal/prediction"
	"github.com/greennav/greennav/internal/worker"
)

// Predictor returns a prediction or the fallback value; it never fails.
type Predictor interface {
	PredictOrFallback(ctx context.Context, lat, lon float64, hour *int) prediction.Result
	FallbackAQI() float64
}

// DefaultHours are the scheduler probe hours.
var DefaultHours = []int{6, 9, 13, 18, 21}

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	Predictor Predictor
	Logger    zerolog.Logger

	// Concurrency bounds in-flight predictions per request (default: 8).
	Concurrency int
	// Timeout bounds a single cell or slot (default: 10 seconds).
	Timeout time.Duration

	// StepDegrees is the grid spacing (default: 0.015).
	StepDegrees float64
	// RadiusSteps is the number of steps on each side of the center (default: 3).
	RadiusSteps int
	// Hours defaults to DefaultHours.
	Hours []int
	// SafeThreshold is the highest AQI still marked safe (default: 100).
	SafeThreshold float64
}

// Service builds heatmaps and daily schedules.
type Service struct {
	predictor Predictor
	logger    zerolog.Logger

	heatmapPool  *worker.Pool
	schedulePool *worker.Pool

	step          float64
	radius        int
	hours         []int
	safeThreshold float64
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		predictor:     cfg.Predictor,
		logger:        cfg.Logger,
		step:          cfg.StepDegrees,
		radius:        cfg.RadiusSteps,
		hours:         cfg.Hours,
		safeThreshold: cfg.SafeThreshold,
	}
	if s.step == 0 {
		s.step = 0.015
	}
	if s.radius <= 0 {
		s.radius = 3
	}
	if len(s.hours) == 0 {
		s.hours = DefaultHours
	}
	if s.safeThreshold == 0 {
		s.safeThreshold = 100
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.heatmapPool = worker.NewPool(worker.PoolConfig{Name: "heatmap", Concurrency: concurrency, Timeout: timeout, Logger: cfg.Logger})
	s.schedulePool = worker.NewPool(worker.PoolConfig{Name: "schedule", Concurrency: concurrency, Timeout: timeout, Logger: cfg.Logger})
	return s
}

// HeatPoint is one grid cell.
type HeatPoint struct {
	Lat      float64
	Lon      float64
	AQI      float64
	Fallback bool
}

// Heatmap predicts the current AQI over a square grid centred on lat/lon, in
// latitude-major order.
func (s *Service) Heatmap(ctx context.Context, lat, lon float64) []HeatPoint {
	side := 2*s.radius + 1
	points := make([]HeatPoint, side*side)
	for i := range points {
		points[i] = HeatPoint{
			Lat: lat + float64(i/side-s.radius)*s.step,
			Lon: lon + float64(i%side-s.radius)*s.step,
		}
	}

	run := s.heatmapPool.Run(ctx, len(points), func(ctx context.Context, i int) error {
		res := s.predictor.PredictOrFallback(ctx, points[i].Lat, points[i].Lon, nil)
		points[i].AQI = res.AQI
		points[i].Fallback = res.Fallback
		return nil
	})
	s.fillSkipped(run, func(i int) {
		points[i].AQI = s.predictor.FallbackAQI()
		points[i].Fallback = true
	})

	return points
}

// Slot is the forecast for one probe hour.
type Slot struct {
	Hour      string
	HourOfDay int
	AQI       float64
	Status    advisory.Level
	IsSafe    bool
	Fallback  bool
}

// Schedule predicts the AQI at lat/lon for each probe hour of today.
func (s *Service) Schedule(ctx context.Context, lat, lon float64) []Slot {
	slots := make([]Slot, len(s.hours))
	for i, h := range s.hours {
		slots[i] = Slot{Hour: fmt.Sprintf("%02d:00", h), HourOfDay: h}
	}

	run := s.schedulePool.Run(ctx, len(slots), func(ctx context.Context, i int) error {
		hour := slots[i].HourOfDay
		res := s.predictor.PredictOrFallback(ctx, lat, lon, &hour)
		s.fillSlot(&slots[i], res.AQI, res.Fallback)
		return nil
	})
	s.fillSkipped(run, func(i int) {
		s.fillSlot(&slots[i], s.predictor.FallbackAQI(), true)
	})

	return slots
}

func (s *Service) fillSlot(slot *Slot, aqi float64, fallback bool) {
	slot.AQI = aqi
	slot.Fallback = fallback
	slot.Status = advisory.Advise(aqi).Level
	slot.IsSafe = aqi <= s.safeThreshold
}

// fillSkipped gives cells that never ran (request cancelled) the fallback value.
func (s *Service) fillSkipped(run *worker.RunResult, fill func(i int)) {
	if run.Failed == 0 {
		return
	}
	s.logger.Warn().Int("skipped", run.Failed).Msg("forecast cells skipped, using fallback")
	for _, e := range run.Errors {
		fill(e.Index)
	}
}

// MetricsSnapshot returns the fan-out pools' metrics.
func (s *Service) MetricsSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"heatmap":  s.heatmapPool.MetricsSnapshot(),
		"schedule": s.schedulePool.MetricsSnapshot(),
	}
}
