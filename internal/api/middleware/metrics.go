package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/greennav/greennav/internal/api/middleware"

// Metrics holds the OpenTelemetry metrics instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	var m Metrics
	var err, e error

	m.requestDuration, e = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"), metric.WithUnit("s"))
	err = errors.Join(err, e)
	m.requestTotal, e = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"), metric.WithUnit("{request}"))
	err = errors.Join(err, e)
	m.requestsInFlight, e = meter.Int64UpDownCounter("http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"), metric.WithUnit("{request}"))
	err = errors.Join(err, e)
	m.responseSize, e = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"), metric.WithUnit("By"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware returns an HTTP middleware that records metrics for each request. Routes
// are labelled by chi pattern so coordinates in paths never become label values.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			method := metric.WithAttributes(attribute.String("http.method", r.Method))
			m.requestsInFlight.Add(r.Context(), 1, method)
			defer m.requestsInFlight.Add(r.Context(), -1, method)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)),
				attribute.Bool("error", wrapped.statusCode >= 400),
			)
			m.requestDuration.Record(r.Context(), time.Since(start).Seconds(), attrs)
			m.requestTotal.Add(r.Context(), 1, attrs)
			m.responseSize.Record(r.Context(), wrapped.written, attrs)
		})
	}
}

// ProviderMetrics holds metrics for upstream provider calls and the fallbacks
// substituted when they fail.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	fallbackTotal   metric.Int64Counter
}

// NewProviderMetrics creates the instruments for upstream calls and fallbacks.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)
	var m ProviderMetrics
	var err, e error

	m.requestDuration, e = meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"), metric.WithUnit("s"))
	err = errors.Join(err, e)
	m.requestTotal, e = meter.Int64Counter("provider.request.total",
		metric.WithDescription("Total number of provider requests"), metric.WithUnit("{request}"))
	err = errors.Join(err, e)
	m.fallbackTotal, e = meter.Int64Counter("greennav.fallback.total",
		metric.WithDescription("Number of responses that used a fallback value"), metric.WithUnit("{fallback}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequest records one provider call. Its signature matches resilience.ResultHook
// so it can be passed as a client's OnResult.
func (m *ProviderMetrics) RecordRequest(provider string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context: the request context may already be cancelled.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFallback counts a substituted value, e.g. component "live_aqi" with reason "disabled".
func (m *ProviderMetrics) RecordFallback(ctx context.Context, component, reason string) {
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("reason", reason),
	))
}
