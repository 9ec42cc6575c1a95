package prediction_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/prediction"
	"github.com/greennav/greennav/internal/prediction/mock_prediction"
	"github.com/greennav/greennav/internal/recorder"
	"github.com/greennav/greennav/internal/weather"
)

// Sunday 18 October 2026, 09:30 UTC.
var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type stubWeather struct {
	sample *weather.Sample
	err    error
}

func (s stubWeather) CurrentOrFallback(context.Context, float64, float64) weather.Sample {
	if s.err != nil {
		return weather.FallbackSample()
	}
	return *s.sample
}

type stubLag struct {
	value float64
	ok    bool
	calls int
}

func (s *stubLag) HistoricalLag(context.Context, float64, float64) (float64, bool) {
	s.calls++
	return s.value, s.ok
}

var delhiWeather = &weather.Sample{TemperatureC: 29.4, HumidityPercent: 61, WindSpeedKmh: 7.9}

func newService(model prediction.Model, opts ...func(*prediction.ServiceConfig)) *prediction.Service {
	cfg := prediction.ServiceConfig{
		Model:   model,
		Weather: stubWeather{sample: delhiWeather},
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return prediction.NewService(cfg)
}

func newMockModel(t *testing.T) *mock_prediction.MockModel {
	ctrl := gomock.NewController(t)
	model := mock_prediction.NewMockModel(ctrl)
	model.EXPECT().Name().Return("mock").AnyTimes()
	return model
}

func TestService_Predict(t *testing.T) {
	model := newMockModel(t)
	want := prediction.FeatureRow{
		Latitude:          28.6139,
		Longitude:         77.2090,
		Hour:              9,
		DayOfWeek:         6,
		Month:             10,
		TemperatureC:      29.4,
		HumidityPercent:   61,
		WindSpeedKmh:      7.9,
		PrecipitationMM:   0,
		PressureMSLhPa:    1013,
		IsDaytime:         true,
		AQILag24h:         50,
		CropBurningSeason: true,
	}
	model.EXPECT().Predict(gomock.Any(), want).Return(142.3456, nil)

	res, err := newService(model).Predict(context.Background(), 28.6139, 77.2090, nil)
	require.NoError(t, err)

	assert.Equal(t, 142.35, res.AQI)
	assert.Equal(t, "mock", res.Model)
	assert.False(t, res.Fallback)
	assert.Equal(t, want, res.Features)
}

func TestService_Predict_HourOverride(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().Predict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row prediction.FeatureRow) (float64, error) {
			assert.Equal(t, 22, row.Hour)
			assert.False(t, row.IsDaytime)
			// Day and month still come from the clock.
			assert.Equal(t, 6, row.DayOfWeek)
			assert.Equal(t, 10, row.Month)
			return 180, nil
		})

	hour := 22
	res, err := newService(model).Predict(context.Background(), 28.6139, 77.2090, &hour)
	require.NoError(t, err)
	assert.Equal(t, 180.0, res.AQI)
}

func TestService_Predict_InvalidInput(t *testing.T) {
	model := newMockModel(t)
	svc := newService(model)
	ctx := context.Background()

	hour := 24
	_, err := svc.Predict(ctx, 28.6, 77.2, &hour)
	assert.ErrorIs(t, err, prediction.ErrInvalidHour)

	hour = -1
	_, err = svc.Predict(ctx, 28.6, 77.2, &hour)
	assert.ErrorIs(t, err, prediction.ErrInvalidHour)

	_, err = svc.Predict(ctx, 95, 77.2, nil)
	assert.ErrorIs(t, err, prediction.ErrInvalidCoordinates)

	_, err = svc.Predict(ctx, math.NaN(), 77.2, nil)
	assert.ErrorIs(t, err, prediction.ErrInvalidCoordinates)
}

func TestService_NoModel(t *testing.T) {
	svc := newService(nil)

	_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
	assert.ErrorIs(t, err, prediction.ErrModelUnavailable)

	for _, loc := range [][2]float64{{28.6, 77.2}, {-33.9, 151.2}, {0, 0}} {
		res := svc.PredictOrFallback(context.Background(), loc[0], loc[1], nil)
		assert.Equal(t, 50.0, res.AQI)
		assert.True(t, res.Fallback)
		assert.NotEmpty(t, res.Reason)
	}
	assert.Equal(t, "none", svc.ModelName())
}

func TestService_ModelError(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(0.0, errors.New("tree ensemble exploded")).Times(2)
	svc := newService(model)

	_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
	assert.ErrorIs(t, err, prediction.ErrInferenceFailed)

	res := svc.PredictOrFallback(context.Background(), 28.6, 77.2, nil)
	assert.Equal(t, 50.0, res.AQI)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Reason, "tree ensemble exploded")
}

func TestService_CustomFallback(t *testing.T) {
	svc := newService(nil, func(c *prediction.ServiceConfig) { c.FallbackAQI = 65 })

	res := svc.PredictOrFallback(context.Background(), 28.6, 77.2, nil)
	assert.Equal(t, 65.0, res.AQI)
	assert.Equal(t, 65.0, svc.FallbackAQI())
}

func TestService_ForceFallbackFlag(t *testing.T) {
	model := newMockModel(t) // Predict must not be called
	svc := newService(model, func(c *prediction.ServiceConfig) {
		c.Flags = featureflags.Static{featureflags.FlagForceModelFallback: true}
	})

	_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
	assert.ErrorIs(t, err, prediction.ErrModelUnavailable)
}

func TestService_WeatherFailureUsesFallbackSample(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().Predict(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row prediction.FeatureRow) (float64, error) {
			assert.Equal(t, 25.0, row.TemperatureC)
			assert.Equal(t, 50.0, row.HumidityPercent)
			assert.Equal(t, 10.0, row.WindSpeedKmh)
			return 120, nil
		})

	svc := newService(model, func(c *prediction.ServiceConfig) {
		c.Weather = stubWeather{err: weather.ErrProviderUnavailable}
	})

	res, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
	require.NoError(t, err)
	assert.True(t, res.Weather.Fallback)
}

func TestService_LiveLagFeature(t *testing.T) {
	t.Run("flag off keeps the constant", func(t *testing.T) {
		lag := &stubLag{value: 95, ok: true}
		model := newMockModel(t)
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, row prediction.FeatureRow) (float64, error) {
				assert.Equal(t, 50.0, row.AQILag24h)
				return 1, nil
			})

		svc := newService(model, func(c *prediction.ServiceConfig) { c.Lag = lag })
		_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
		require.NoError(t, err)
		assert.Zero(t, lag.calls)
	})

	t.Run("flag on uses the lookup", func(t *testing.T) {
		lag := &stubLag{value: 95, ok: true}
		model := newMockModel(t)
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, row prediction.FeatureRow) (float64, error) {
				assert.Equal(t, 95.0, row.AQILag24h)
				return 1, nil
			})

		svc := newService(model, func(c *prediction.ServiceConfig) {
			c.Lag = lag
			c.Flags = featureflags.Static{featureflags.FlagLiveLagFeature: true}
		})
		_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, lag.calls)
	})

	t.Run("flag on without a reading", func(t *testing.T) {
		lag := &stubLag{value: 50, ok: false}
		model := newMockModel(t)
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, row prediction.FeatureRow) (float64, error) {
				assert.Equal(t, prediction.DefaultLagAQI, row.AQILag24h)
				return 1, nil
			})

		svc := newService(model, func(c *prediction.ServiceConfig) {
			c.Lag = lag
			c.Flags = featureflags.Static{featureflags.FlagLiveLagFeature: true}
		})
		_, err := svc.Predict(context.Background(), 28.6, 77.2, nil)
		require.NoError(t, err)
	})
}

func TestService_RecordsPredictions(t *testing.T) {
	model := newMockModel(t)
	gomock.InOrder(
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(133.333, nil),
		model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(0.0, errors.New("boom")),
	)
	mem := recorder.NewMemory()

	svc := newService(model, func(c *prediction.ServiceConfig) {
		c.Recorder = mem
		c.Flags = featureflags.Static{featureflags.FlagRecordPredictions: true}
	})

	svc.PredictOrFallback(context.Background(), 28.6139, 77.2090, nil)
	svc.PredictOrFallback(context.Background(), 28.6139, 77.2090, nil)

	records := mem.Records()
	require.Len(t, records, 2)

	assert.Equal(t, 133.33, records[0].PredictedAQI)
	assert.False(t, records[0].Fallback)
	assert.Equal(t, "mock", records[0].Model)
	assert.Equal(t, prediction.FeatureNames, records[0].FeatureNames)
	assert.Len(t, records[0].Features, 13)
	assert.Equal(t, 28.6139, records[0].Latitude)

	assert.Equal(t, 50.0, records[1].PredictedAQI)
	assert.True(t, records[1].Fallback)
	assert.Contains(t, records[1].Reason, "boom")
}

func TestService_RecordingOffByDefault(t *testing.T) {
	model := newMockModel(t)
	model.EXPECT().Predict(gomock.Any(), gomock.Any()).Return(100.0, nil)
	mem := recorder.NewMemory()

	svc := newService(model, func(c *prediction.ServiceConfig) { c.Recorder = mem })
	svc.PredictOrFallback(context.Background(), 28.6, 77.2, nil)

	assert.Empty(t, mem.Records())
}

func TestBuildFeatureRow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		hour      int
		wantDay   int
		wantDaytm bool
		wantCrop  bool
	}{
		{"monday morning", time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), 7, 0, true, false},
		{"sunday evening in november", time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC), 19, 6, false, true},
		{"boundary 6am", time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC), 6, 2, true, true},
		{"boundary 6pm", time.Date(2026, 12, 18, 18, 0, 0, 0, time.UTC), 18, 4, true, false},
		{"midnight", time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), 0, 2, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := prediction.BuildFeatureRow(1, 2, tt.now, tt.hour, weather.FallbackSample(), 50)
			assert.Equal(t, tt.wantDay, row.DayOfWeek)
			assert.Equal(t, tt.wantDaytm, row.IsDaytime)
			assert.Equal(t, tt.wantCrop, row.CropBurningSeason)
			assert.Equal(t, 1013.0, row.PressureMSLhPa)
			assert.Equal(t, 0.0, row.PrecipitationMM)
		})
	}
}

func TestFeatureRow_Values(t *testing.T) {
	row := prediction.BuildFeatureRow(28.6139, 77.2090, fixedNow, 9, *delhiWeather, 50)

	assert.Equal(t, []float64{
		28.6139, 77.2090, 9, 6, 10,
		29.4, 61, 7.9,
		0, 1013, 1, 50, 1,
	}, row.Values())
	assert.Len(t, prediction.FeatureNames, len(row.Values()))
	assert.Equal(t, prediction.FeatureNames, prediction.Names())
}
