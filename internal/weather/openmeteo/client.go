// Package openmeteo provides a client for the keyless Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/provider/resilience"
	"github.com/greennav/greennav/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com"

	// DefaultTimeout bounds a single weather call.
	DefaultTimeout = 5 * time.Second

	currentVariables = "temperature_2m,relative_humidity_2m,wind_speed_10m"
	timeLayout       = "2006-01-02T15:04"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer

	Timeout    time.Duration
	MaxRetries uint64
	Registry   *resilience.Registry
	OnResult   resilience.ResultHook

	Logger zerolog.Logger
}

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = DefaultTimeout
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.MaxRetries = cfg.MaxRetries
		clientCfg.Registry = cfg.Registry
		clientCfg.OnResult = cfg.OnResult
		clientCfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Current fetches current temperature, humidity and wind speed (km/h).
func (c *Client) Current(ctx context.Context, lat, lon float64) (*weather.Sample, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", currentVariables)
	q.Set("forecast_days", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("requesting current weather from Open-Meteo")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &weather.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach weather provider",
			Err:      fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &weather.Error{
			Provider: ProviderName,
			Code:     "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message:  fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Err:      weather.ErrProviderUnavailable,
		}
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &weather.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "decoding response",
			Err:      fmt.Errorf("%w: %w", weather.ErrMalformedResponse, err),
		}
	}

	cur := body.Current
	if cur == nil || cur.Temperature == nil || cur.Humidity == nil || cur.WindSpeed == nil {
		return nil, &weather.Error{
			Provider: ProviderName,
			Code:     "MISSING_FIELDS",
			Message:  "response lacks current conditions",
			Err:      weather.ErrMalformedResponse,
		}
	}

	sample := &weather.Sample{
		TemperatureC:    *cur.Temperature,
		HumidityPercent: *cur.Humidity,
		WindSpeedKmh:    *cur.WindSpeed,
		ObservedAt:      time.Now().UTC(),
	}
	if t, err := time.Parse(timeLayout, cur.Time); err == nil {
		sample.ObservedAt = t
	}
	return sample, nil
}

type forecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   *struct {
		Time        string   `json:"time"`
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WindSpeed   *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}
