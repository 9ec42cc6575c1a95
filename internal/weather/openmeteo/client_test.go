package openmeteo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greennav/greennav/internal/provider/resilience"
	"github.com/greennav/greennav/internal/weather"
	"github.com/greennav/greennav/internal/weather/openmeteo"
)

func newTestClient(url string) *openmeteo.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.MaxRetries = 0
	return openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:    url,
		HTTPClient: resilience.NewClient(cfg),
	})
}

func TestClient_Current(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "28.6139", r.URL.Query().Get("latitude"))
		assert.Equal(t, "77.209", r.URL.Query().Get("longitude"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m,wind_speed_10m", r.URL.Query().Get("current"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"latitude": 28.625,
			"longitude": 77.25,
			"current": {
				"time": "2026-10-18T09:15",
				"interval": 900,
				"temperature_2m": 29.4,
				"relative_humidity_2m": 61,
				"wind_speed_10m": 7.9
			}
		}`))
	}))
	defer server.Close()

	sample, err := newTestClient(server.URL).Current(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)

	assert.Equal(t, 29.4, sample.TemperatureC)
	assert.Equal(t, 61.0, sample.HumidityPercent)
	assert.Equal(t, 7.9, sample.WindSpeedKmh)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC), sample.ObservedAt)
	assert.False(t, sample.Fallback)
}

func TestClient_Current_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": true, "reason": "Latitude must be in range of -90 to 90°."}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Current(context.Background(), 28.6, 77.2)
	require.Error(t, err)

	var werr *weather.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "HTTP_400", werr.Code)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestClient_Current_MissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"current": {"time": "2026-10-18T09:15", "temperature_2m": 20}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Current(context.Background(), 28.6, 77.2)
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)
}

func TestClient_Current_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Current(context.Background(), 28.6, 77.2)
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)
}

func TestClient_Current_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Current(context.Background(), 28.6, 77.2)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "open-meteo", openmeteo.NewClient(openmeteo.ClientConfig{}).Name())
}
