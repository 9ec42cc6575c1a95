package app_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/app"
	"github.com/greennav/greennav/internal/config"
	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/recorder"
)

func testConfig() config.Config {
	return config.Config{
		ModelPath:           "../../ml_assets/aqi_model.csv",
		ForecastConcurrency: 2,
		Tunables:            config.DefaultTunables(),
	}
}

func TestBuild_WithoutDatabase(t *testing.T) {
	svc, err := app.Build(context.Background(), testConfig(), zerolog.Nop(), app.Options{})
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.DB)
	assert.IsType(t, recorder.Nop{}, svc.Recorder)
	assert.Equal(t, "linear", svc.ModelName)
	assert.NotNil(t, svc.Comparator)
	assert.NotNil(t, svc.Forecast)

	// Nothing records, so recording defaults to off.
	assert.False(t, svc.Flags.IsEnabled(context.Background(), featureflags.FlagRecordPredictions))
}

func TestBuild_MissingModelIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.ModelPath = "does-not-exist.csv"

	svc, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{Recording: app.RecordNone})
	require.NoError(t, err)
	defer svc.Close()

	assert.Empty(t, svc.ModelName)
	assert.Equal(t, 50.0, svc.Prediction.FallbackAQI())
}

func TestBuild_UnknownActivityFactorFromTunables(t *testing.T) {
	cfg := testConfig()
	cfg.Tunables.UnknownActivityFactor = 1.5

	svc, err := app.Build(context.Background(), cfg, zerolog.Nop(), app.Options{Recording: app.RecordNone})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 1.5, svc.Scorer.Factor("skydiving"))
	assert.Equal(t, 2.0, svc.Scorer.Factor("cycling"))
}
