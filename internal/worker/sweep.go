package worker

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/prediction"
)

// Predictor produces predictions for the sweep.
type Predictor interface {
	Predict(ctx context.Context, lat, lon float64, hour *int) (*prediction.Result, error)
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config    SweepConfig
	Predictor Predictor
	Logger    zerolog.Logger
}

// SweepJob predicts AQI at every configured point. Predictions are persisted by the
// predictor's recorder.
type SweepJob struct {
	config    SweepConfig
	predictor Predictor
	pool      *Pool
	logger    zerolog.Logger
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultTargets()
	} else {
		config.Targets = append([]Target(nil), config.Targets...)
	}
	sort.SliceStable(config.Targets, func(i, j int) bool {
		return config.Targets[i].Priority < config.Targets[j].Priority
	})
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &SweepJob{
		config:    config,
		predictor: cfg.Predictor,
		pool: NewPool(PoolConfig{
			Name:        "sweep",
			Concurrency: config.Concurrency,
			Timeout:     config.Timeout,
			Logger:      cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// SweepResult contains the outcome of one sweep.
type SweepResult struct {
	*RunResult
	TotalPoints int
	// ModelUnavailable counts points that fell back because no model answered.
	ModelUnavailable int
}

type sweepItem struct {
	point Point
	hour  *int
}

// Run predicts every point for every configured hour.
func (j *SweepJob) Run(ctx context.Context) *SweepResult {
	items := j.items()

	j.logger.Info().
		Int("total_points", j.config.TotalPoints()).
		Int("predictions", len(items)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting prediction sweep")

	unavailable := make([]bool, len(items))
	run := j.pool.Run(ctx, len(items), func(ctx context.Context, i int) error {
		if j.predictor == nil {
			return prediction.ErrModelUnavailable
		}
		item := items[i]
		_, err := j.predictor.Predict(ctx, item.point.Lat, item.point.Lon, item.hour)
		if errors.Is(err, prediction.ErrModelUnavailable) {
			unavailable[i] = true
		}
		return err
	})

	result := &SweepResult{RunResult: run, TotalPoints: j.config.TotalPoints()}
	for _, u := range unavailable {
		if u {
			result.ModelUnavailable++
		}
	}

	j.logger.Info().
		Dur("duration", run.Duration).
		Int("successful", run.Successful).
		Int("failed", run.Failed).
		Int("model_unavailable", result.ModelUnavailable).
		Msg("prediction sweep completed")

	return result
}

func (j *SweepJob) items() []sweepItem {
	points := j.config.AllPoints()
	if len(j.config.Hours) == 0 {
		items := make([]sweepItem, len(points))
		for i, p := range points {
			items[i] = sweepItem{point: p}
		}
		return items
	}

	items := make([]sweepItem, 0, len(points)*len(j.config.Hours))
	for _, p := range points {
		for _, h := range j.config.Hours {
			hour := h
			items = append(items, sweepItem{point: p, hour: &hour})
		}
	}
	return items
}

// GetMetrics returns the sweep pool's metrics.
func (j *SweepJob) GetMetrics() PoolMetrics {
	return j.pool.GetMetrics()
}

// MetricsSnapshot returns the sweep pool's metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	return j.pool.MetricsSnapshot()
}
