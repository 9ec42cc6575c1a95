package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/prediction"
	"github.com/greennav/greennav/internal/recorder"
	"github.com/greennav/greennav/internal/worker"
)

type fakePredictor struct {
	mu    sync.Mutex
	calls []worker.Point
	hours []int
	err   error
}

func (f *fakePredictor) Predict(_ context.Context, lat, lon float64, hour *int) (*prediction.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, worker.Point{Lat: lat, Lon: lon})
	if hour != nil {
		f.hours = append(f.hours, *hour)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &prediction.Result{AQI: 120}, nil
}

func TestDefaultSweepConfig(t *testing.T) {
	cfg := worker.DefaultSweepConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.Hours)
	assert.GreaterOrEqual(t, len(cfg.Targets), 5)

	var delhi *worker.Target
	for i := range cfg.Targets {
		if cfg.Targets[i].Name == "New Delhi" {
			delhi = &cfg.Targets[i]
			break
		}
	}
	require.NotNil(t, delhi, "New Delhi should be in targets")
	assert.Equal(t, 1, delhi.Priority)
	assert.GreaterOrEqual(t, len(delhi.Points), 2)
}

func TestSweepConfig_AllPoints(t *testing.T) {
	cfg := worker.SweepConfig{
		Targets: []worker.Target{
			{Name: "A", Points: []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}},
			{Name: "B", Points: []worker.Point{{Lat: 3, Lon: 3}}},
		},
	}

	assert.Len(t, cfg.AllPoints(), 3)
	assert.Equal(t, 3, cfg.TotalPoints())
}

func TestSweepJob_Run(t *testing.T) {
	predictor := &fakePredictor{}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config: worker.SweepConfig{
			Targets: []worker.Target{
				{Name: "later", Priority: 2, Points: []worker.Point{{Lat: 2, Lon: 2}}},
				{Name: "first", Priority: 1, Points: []worker.Point{{Lat: 1, Lon: 1}}},
			},
			Concurrency: 1,
		},
		Predictor: predictor,
		Logger:    zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalPoints)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}, predictor.calls)
	assert.Equal(t, int64(1), job.GetMetrics().TotalRuns)
	assert.Contains(t, job.MetricsSnapshot(), "successful_tasks")
}

func TestSweepJob_Run_Hours(t *testing.T) {
	predictor := &fakePredictor{}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config: worker.SweepConfig{
			Targets: []worker.Target{{Name: "x", Points: []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}},
			Hours:   []int{6, 9, 13, 18, 21},
		},
		Predictor: predictor,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.Total)
	assert.ElementsMatch(t, []int{6, 9, 13, 18, 21, 6, 9, 13, 18, 21}, predictor.hours)
}

func TestSweepJob_Run_ModelUnavailable(t *testing.T) {
	predictor := &fakePredictor{err: prediction.ErrModelUnavailable}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config:    worker.SweepConfig{Targets: []worker.Target{{Name: "x", Points: []worker.Point{{Lat: 1, Lon: 1}}}}},
		Predictor: predictor,
	})

	result := job.Run(context.Background())
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.ModelUnavailable)
}

func TestSweepJob_Run_NoPredictor(t *testing.T) {
	job := worker.NewSweepJob(worker.SweepJobConfig{})

	result := job.Run(context.Background())
	assert.Equal(t, worker.DefaultSweepConfig().TotalPoints(), result.TotalPoints)
	assert.Equal(t, result.Total, result.Failed)
}

func TestProcessor_PredictionRecord(t *testing.T) {
	mem := recorder.NewMemory()
	p := &worker.Processor{Recorder: mem}

	rec := recorder.New(recorder.Record{
		FeatureNames: []string{"Latitude"},
		Features:     []float64{28.6},
		PredictedAQI: 140,
		Model:        "linear",
	})
	data, err := recorder.Encode(rec)
	require.NoError(t, err)

	ack := p.Handle(context.Background(), data, nil, zerolog.Nop())
	assert.True(t, ack)
	require.Len(t, mem.Records(), 1)
	assert.Equal(t, rec.ID, mem.Records()[0].ID)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, recorder.Record) error {
	return errors.New("database unavailable")
}

func TestProcessor_Nacks(t *testing.T) {
	rec := recorder.New(recorder.Record{Model: "linear"})
	data, err := recorder.Encode(rec)
	require.NoError(t, err)

	t.Run("storage failure", func(t *testing.T) {
		p := &worker.Processor{Recorder: failingRecorder{}}
		assert.False(t, p.Handle(context.Background(), data, nil, zerolog.Nop()))
	})

	t.Run("sweep with most points failing", func(t *testing.T) {
		p := &worker.Processor{Sweep: worker.NewSweepJob(worker.SweepJobConfig{
			Predictor: &fakePredictor{err: errors.New("down")},
		})}
		attrs := map[string]string{"job_type": worker.JobSweep}
		assert.False(t, p.Handle(context.Background(), nil, attrs, zerolog.Nop()))
	})
}

func TestProcessor_Acks(t *testing.T) {
	p := &worker.Processor{Recorder: recorder.NewMemory()}

	t.Run("malformed record", func(t *testing.T) {
		assert.True(t, p.Handle(context.Background(), []byte(`{broken`), nil, zerolog.Nop()))
	})

	t.Run("unknown job type", func(t *testing.T) {
		assert.True(t, p.Handle(context.Background(), []byte(`{"job_type":"reindex"}`), nil, zerolog.Nop()))
	})

	t.Run("sweep from body", func(t *testing.T) {
		predictor := &fakePredictor{}
		sp := &worker.Processor{Sweep: worker.NewSweepJob(worker.SweepJobConfig{
			Config:    worker.SweepConfig{Targets: []worker.Target{{Name: "x", Points: []worker.Point{{Lat: 1, Lon: 1}}}}},
			Predictor: predictor,
		})}
		assert.True(t, sp.Handle(context.Background(), []byte(`{"job_type":"sweep"}`), nil, zerolog.Nop()))
		assert.Len(t, predictor.calls, 1)
	})
}
