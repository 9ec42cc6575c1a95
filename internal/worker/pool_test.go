package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/worker"
)

func TestPool_Run(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Concurrency: 3, Logger: zerolog.Nop()})

	out := make([]int, 49)
	result := pool.Run(context.Background(), len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})

	assert.Equal(t, 49, result.Total)
	assert.Equal(t, 49, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 36, out[6])
	assert.Equal(t, 48*48, out[48])
}

func TestPool_Run_BoundedConcurrency(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Concurrency: 2})

	var inFlight, peak atomic.Int32
	pool.Run(context.Background(), 10, func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestPool_Run_Errors(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Concurrency: 4})

	result := pool.Run(context.Background(), 6, func(_ context.Context, i int) error {
		if i%3 == 0 {
			return errors.New("boom")
		}
		return nil
	})

	assert.Equal(t, 4, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	indices := []int{result.Errors[0].Index, result.Errors[1].Index}
	assert.ElementsMatch(t, []int{0, 3}, indices)
	assert.Equal(t, "boom", result.Errors[0].Error)
}

func TestPool_Run_TaskTimeout(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Concurrency: 1, Timeout: 20 * time.Millisecond})

	result := pool.Run(context.Background(), 1, func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors[0].Error, "deadline exceeded")
}

func TestPool_Run_ContextCancellation(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	result := pool.Run(ctx, 100, func(_ context.Context, _ int) error {
		calls.Add(1)
		return nil
	})

	assert.Zero(t, calls.Load())
	assert.Equal(t, 100, result.Failed)
}

func TestPool_Run_Empty(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{})

	result := pool.Run(context.Background(), 0, func(context.Context, int) error {
		t.Fatal("task must not run")
		return nil
	})
	assert.Zero(t, result.Total)
}

func TestPool_Metrics(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Name: "heatmap"})

	pool.Run(context.Background(), 3, func(context.Context, int) error { return nil })
	pool.Run(context.Background(), 2, func(context.Context, int) error { return errors.New("x") })

	m := pool.GetMetrics()
	assert.Equal(t, int64(2), m.TotalRuns)
	assert.Equal(t, int64(5), m.TotalTasks)
	assert.Equal(t, int64(3), m.SuccessfulTasks)
	assert.Equal(t, int64(2), m.FailedTasks)
	assert.False(t, m.LastRunAt.IsZero())

	snapshot := pool.MetricsSnapshot()
	assert.Equal(t, "heatmap", snapshot["pool"])
	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "failed_tasks")
	assert.Contains(t, snapshot, "last_run_duration")
}
