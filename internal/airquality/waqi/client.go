// Package waqi provides a client for the World Air Quality Index geo feed.
package waqi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/airquality"
	"github.com/greennav/greennav/internal/provider/resilience"
)

const (
	// ProviderName identifies this air quality provider.
	ProviderName = "waqi"

	// DefaultBaseURL is the WAQI API base URL.
	DefaultBaseURL = "https://api.waqi.info"

	// DefaultTimeout bounds a single feed call.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI API token.
	Token string

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

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new WAQI client.
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
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Live fetches the nearest station's AQI for a location.
func (c *Client) Live(ctx context.Context, lat, lon float64) (*airquality.Reading, error) {
	endpoint := fmt.Sprintf("%s/feed/geo:%s;%s/?token=%s",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("requesting live AQI from WAQI")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &airquality.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach air quality provider",
			Err:      fmt.Errorf("%w: %w", airquality.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &airquality.Error{
			Provider: ProviderName,
			Code:     "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message:  fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Err:      airquality.ErrProviderUnavailable,
		}
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, malformed("DECODE_FAILED", "decoding response", err)
	}

	// On failure WAQI answers 200 with status "error" and a message string in data.
	if body.Status != "ok" {
		var msg string
		_ = json.Unmarshal(body.Data, &msg)
		return nil, &airquality.Error{
			Provider: ProviderName,
			Code:     "STATUS_" + body.Status,
			Message:  "feed returned " + strconv.Quote(msg),
			Err:      airquality.ErrMalformedResponse,
		}
	}

	var data feedData
	if err := json.Unmarshal(body.Data, &data); err != nil {
		return nil, malformed("DECODE_FAILED", "decoding feed data", err)
	}

	aqi, err := parseAQI(data.AQI)
	if err != nil {
		return nil, &airquality.Error{
			Provider: ProviderName,
			Code:     "NO_AQI",
			Message:  "station has no AQI value",
			Err:      fmt.Errorf("%w: %w", airquality.ErrNoStation, err),
		}
	}

	reading := &airquality.Reading{
		AQI:        aqi,
		City:       data.City.Name,
		ObservedAt: time.Now().UTC(),
	}
	if data.Time.ISO != "" {
		if t, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
			reading.ObservedAt = t
		}
	}
	return reading, nil
}

// parseAQI accepts a JSON number or a numeric string; stations without data send "-".
func parseAQI(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("aqi missing")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("aqi has unexpected type: %s", raw)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("aqi %q is not numeric", s)
	}
	return n, nil
}

func malformed(code, msg string, err error) error {
	return &airquality.Error{
		Provider: ProviderName,
		Code:     code,
		Message:  msg,
		Err:      fmt.Errorf("%w: %w", airquality.ErrMalformedResponse, err),
	}
}

type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.RawMessage `json:"aqi"`
	Idx  int             `json:"idx"`
	City struct {
		Name string    `json:"name"`
		Geo  []float64 `json:"geo"`
		URL  string    `json:"url"`
	} `json:"city"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
}
