// Package config loads GreenNav runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings for the API, worker and CLI.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	TelemetryEnabled bool
	OTLPEndpoint     string

	WAQIAPIKey       string
	WAQIBaseURL      string
	OpenMeteoBaseURL string
	WeatherTimeout   time.Duration
	OSRMBaseURL      string
	OSRMProfile      string
	RoutingTimeout   time.Duration

	// ProviderMaxRetries is the number of retries for failed upstream calls.
	ProviderMaxRetries uint64

	// ModelPath points at the coefficient artifact. Absence is not fatal.
	ModelPath string
	// ModelEndpoint, when set, selects the remote inference backend instead of ModelPath.
	ModelEndpoint string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	DatabaseEnabled bool

	PubSubProjectID    string
	PubSubTopic        string
	PubSubSubscription string

	CORSAllowedOrigins []string
	RequireTLS         bool

	ForecastConcurrency int

	// SweepInterval is how often the worker sweeps without Pub/Sub; 0 disables it.
	SweepInterval time.Duration

	Tunables Tunables
}

// Load reads an optional .env file, then the environment, then the tunables file
// named by GREENNAV_TUNABLES_FILE.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	p := &envParser{}
	cfg := Config{
		Port:                getEnvOrDefault("APP_PORT", "8000"),
		Environment:         getEnvOrDefault("APP_ENV", "development"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		TelemetryEnabled:    p.bool("OTEL_ENABLED", false),
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		WAQIAPIKey:          os.Getenv("WAQI_API_KEY"),
		WAQIBaseURL:         getEnvOrDefault("WAQI_BASE_URL", "https://api.waqi.info"),
		OpenMeteoBaseURL:    getEnvOrDefault("OPEN_METEO_BASE_URL", "https://api.open-meteo.com"),
		WeatherTimeout:      p.duration("WEATHER_TIMEOUT", 5*time.Second),
		OSRMBaseURL:         getEnvOrDefault("OSRM_BASE_URL", "http://router.project-osrm.org"),
		OSRMProfile:         getEnvOrDefault("OSRM_PROFILE", "driving"),
		RoutingTimeout:      p.duration("ROUTING_TIMEOUT", 10*time.Second),
		ProviderMaxRetries:  uint64(p.int("PROVIDER_MAX_RETRIES", 1)), //nolint:gosec // validated below
		ModelPath:           getEnvOrDefault("MODEL_PATH", "ml_assets/aqi_model.csv"),
		ModelEndpoint:       os.Getenv("MODEL_ENDPOINT"),
		JWTSigningKey:       os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:           getEnvOrDefault("JWT_ISSUER", "https://api.greennav.app"),
		JWTAudience:         getEnvOrDefault("JWT_AUDIENCE", "greennav-admin"),
		DatabaseEnabled:     p.bool("DATABASE_ENABLED", false),
		PubSubProjectID:     os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:         getEnvOrDefault("PUBSUB_PREDICTIONS_TOPIC", "aqi-predictions"),
		PubSubSubscription:  getEnvOrDefault("PUBSUB_PREDICTIONS_SUBSCRIPTION", "aqi-predictions-recorder"),
		CORSAllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RequireTLS:          p.bool("REQUIRE_TLS", false),
		ForecastConcurrency: p.int("FORECAST_CONCURRENCY", 8),
		SweepInterval:       p.duration("SWEEP_INTERVAL", time.Hour),
		Tunables:            DefaultTunables(),
	}

	if path := os.Getenv("GREENNAV_TUNABLES_FILE"); path != "" {
		t, err := LoadTunablesFile(path, cfg.Tunables)
		if err != nil {
			return Config{}, err
		}
		cfg.Tunables = t
	}
	cfg.Tunables.DefaultAQIFallback = p.float("DEFAULT_AQI_FALLBACK", cfg.Tunables.DefaultAQIFallback)
	cfg.Tunables.CleanAQIDiscount = p.float("CLEAN_AQI_DISCOUNT", cfg.Tunables.CleanAQIDiscount)
	cfg.Tunables.DetourOffsetDegrees = p.float("DETOUR_OFFSET_DEGREES", cfg.Tunables.DetourOffsetDegrees)

	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.ForecastConcurrency < 1 {
		return Config{}, fmt.Errorf("FORECAST_CONCURRENCY must be >= 1, got %d", cfg.ForecastConcurrency)
	}
	if err := cfg.Tunables.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PubSubEnabled reports whether prediction records should go through Pub/Sub.
func (c Config) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

// envParser collects the first parse error so Load can report it once.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}

func (p *envParser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *envParser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	if n < 0 {
		p.fail(key, v, errors.New("must not be negative"))
		return def
	}
	return n
}

func (p *envParser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
