// Package osrm provides a client for the OSRM route service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/greennav/greennav/internal/provider/resilience"
	"github.com/greennav/greennav/internal/routing"
	"github.com/greennav/greennav/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "http://router.project-osrm.org"

	// DefaultProfile is the OSRM profile segment of the URL.
	DefaultProfile = "driving"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	codeOK        = "Ok"
	codeNoRoute   = "NoRoute"
	codeNoSegment = "NoSegment"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Profile defaults to DefaultProfile.
	Profile string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient HTTPDoer

	Timeout    time.Duration
	MaxRetries uint64
	Registry   *resilience.Registry
	OnResult   resilience.ResultHook

	Logger zerolog.Logger
}

// Client is an OSRM API client.
type Client struct {
	baseURL    string
	profile    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
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
		profile:    profile,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Route requests the fastest route visiting waypoints in order.
func (c *Client) Route(ctx context.Context, waypoints []routing.Coordinate) (*routing.Route, error) {
	if len(waypoints) < 2 {
		return nil, routing.ErrTooFewWaypoints
	}

	// OSRM takes lon,lat pairs separated by semicolons.
	pairs := make([]string, len(waypoints))
	for i, wp := range waypoints {
		pairs[i] = strconv.FormatFloat(wp.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(wp.Lat, 'f', 6, 64)
	}
	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=polyline",
		c.baseURL, c.profile, strings.Join(pairs, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("profile", c.profile).
		Int("waypoints", len(waypoints)).
		Float64("origin_lat", waypoints[0].Lat).
		Float64("origin_lon", waypoints[0].Lon).
		Msg("requesting route from OSRM")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var osrmResp routeResponse
	decodeErr := json.Unmarshal(body, &osrmResp)

	// A body that fails to decode has no code, so it is handled here as well.
	if resp.StatusCode != http.StatusOK || osrmResp.Code != codeOK {
		return nil, c.handleErrorResponse(resp.StatusCode, &osrmResp, decodeErr)
	}
	if len(osrmResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "response contained no routes",
			Err:      routing.ErrNoRouteFound,
		}
	}

	best := osrmResp.Routes[0]
	path, err := polyline.Decode(best.Geometry, polyline.Precision5)
	if err != nil || len(path) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_GEOMETRY",
			Message:  "route geometry could not be decoded",
			Err:      routing.ErrMalformedResponse,
		}
	}

	c.logger.Debug().
		Int("points", len(path)).
		Float64("duration_s", best.Duration).
		Float64("distance_m", best.Distance).
		Msg("received route from OSRM")

	return &routing.Route{
		Path:            path,
		DurationMinutes: best.Duration / 60,
		DistanceMeters:  best.Distance,
		Provider:        ProviderName,
	}, nil
}

// handleErrorResponse maps OSRM error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, resp *routeResponse, decodeErr error) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "routing rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	case decodeErr != nil:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("undecodable response with status %d", statusCode),
			Err:      fmt.Errorf("%w: %w", routing.ErrMalformedResponse, decodeErr),
		}
	case resp.Code == codeNoRoute || resp.Code == codeNoSegment:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  resp.Message,
			Err:      routing.ErrNoRouteFound,
		}
	case statusCode == http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     resp.Code,
			Message:  resp.Message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     resp.Code,
			Message:  fmt.Sprintf("routing provider returned code %q", resp.Code),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}
