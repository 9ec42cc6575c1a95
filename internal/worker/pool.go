package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task handles the i-th unit of a run. It should write its own output by index.
type Task func(ctx context.Context, i int) error

// PoolConfig holds configuration for a Pool.
type PoolConfig struct {
	// Name labels the pool in logs.
	Name string

	// Concurrency is the number of tasks in flight (default: 4).
	Concurrency int

	// Timeout bounds each task (default: 10 seconds).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Pool runs indexed tasks with bounded concurrency.
type Pool struct {
	name        string
	concurrency int
	timeout     time.Duration
	logger      zerolog.Logger

	metrics *PoolMetrics
}

// PoolMetrics tracks run statistics across the pool's lifetime.
type PoolMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	TotalTasks      int64
	SuccessfulTasks int64
	FailedTasks     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// NewPool creates a new pool.
func NewPool(cfg PoolConfig) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "pool"
	}

	return &Pool{
		name:        name,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      cfg.Logger,
		metrics:     &PoolMetrics{},
	}
}

// RunResult summarizes one Run.
type RunResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Errors     []TaskError
}

// TaskError records a failed task.
type TaskError struct {
	Index int
	Error string
}

// Run executes task for every index in [0, n). Once ctx is done the remaining
// tasks are not started and count as failed.
func (p *Pool) Run(ctx context.Context, n int, task Task) *RunResult {
	startTime := time.Now()
	result := &RunResult{StartTime: startTime, Total: n}

	indices := make(chan int, n)
	outcomes := make(chan taskOutcome, n)

	workers := p.concurrency
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes <- p.runTask(ctx, i, task)
			}
		}()
	}

	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, TaskError{Index: o.index, Error: o.err.Error()})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	p.updateMetrics(result)

	p.logger.Debug().
		Str("pool", p.name).
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("pool run completed")

	return result
}

type taskOutcome struct {
	index int
	err   error
}

func (p *Pool) runTask(ctx context.Context, i int, task Task) taskOutcome {
	if err := ctx.Err(); err != nil {
		return taskOutcome{index: i, err: err}
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return taskOutcome{index: i, err: task(taskCtx, i)}
}

func (p *Pool) updateMetrics(result *RunResult) {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	p.metrics.TotalRuns++
	p.metrics.TotalTasks += int64(result.Total)
	p.metrics.SuccessfulTasks += int64(result.Successful)
	p.metrics.FailedTasks += int64(result.Failed)
	p.metrics.LastRunAt = result.EndTime
	p.metrics.LastRunDuration = result.Duration
	p.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (p *Pool) GetMetrics() PoolMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	return PoolMetrics{
		TotalRuns:       p.metrics.TotalRuns,
		TotalTasks:      p.metrics.TotalTasks,
		SuccessfulTasks: p.metrics.SuccessfulTasks,
		FailedTasks:     p.metrics.FailedTasks,
		LastRunAt:       p.metrics.LastRunAt,
		LastRunDuration: p.metrics.LastRunDuration,
		TotalDuration:   p.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the metrics as a map for status endpoints.
func (p *Pool) MetricsSnapshot() map[string]interface{} {
	m := p.GetMetrics()
	return map[string]interface{}{
		"pool":              p.name,
		"total_runs":        m.TotalRuns,
		"total_tasks":       m.TotalTasks,
		"successful_tasks":  m.SuccessfulTasks,
		"failed_tasks":      m.FailedTasks,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
