// Package remote calls an external inference server that hosts the trained model.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/prediction"
	"github.com/greennav/greennav/internal/provider/resilience"
)

const (
	// ProviderName identifies the remote model in the provider registry.
	ProviderName = "model"

	// DefaultTimeout bounds a single inference call.
	DefaultTimeout = 5 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the inference client.
type ClientConfig struct {
	// Endpoint is the full prediction URL.
	Endpoint string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer

	Timeout    time.Duration
	MaxRetries uint64
	Registry   *resilience.Registry
	OnResult   resilience.ResultHook

	Logger zerolog.Logger
}

// Client is a prediction.Model backed by an HTTP inference server.
type Client struct {
	endpoint   string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new inference client.
func NewClient(cfg ClientConfig) *Client {
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
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the model name.
func (c *Client) Name() string {
	return "remote"
}

// Predict sends one feature row and returns the first prediction.
func (c *Client) Predict(ctx context.Context, row prediction.FeatureRow) (float64, error) {
	body, err := json.Marshal(predictRequest{
		FeatureNames: prediction.FeatureNames,
		Features:     [][]float64{row.Values()},
	})
	if err != nil {
		return 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling inference server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return 0, errors.New("inference server returned no predictions")
	}

	c.logger.Debug().
		Float64("prediction", out.Predictions[0]).
		Msg("received prediction from inference server")

	return out.Predictions[0], nil
}

type predictRequest struct {
	FeatureNames []string    `json:"feature_names"`
	Features     [][]float64 `json:"features"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}
