package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/fangstlog/fangstlog/internal/api/middleware"

func meterFrom(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(meterName)
}

// Metrics records request counts, latency, in-flight requests and response
// sizes for the API.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the server instruments on mp, or on the global provider
// when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := meterFrom(mp)
	var m Metrics
	var errs [4]error

	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time spent serving API requests"),
		metric.WithUnit("s"))
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("API requests served"),
		metric.WithUnit("{request}"))
	m.inFlight, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("API requests being served"),
		metric.WithUnit("{request}"))
	m.size, errs[3] = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Response body sizes"),
		metric.WithUnit("By"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records one measurement per request. Requests are labelled by
// chi route pattern so trip and spot IDs stay out of the attributes.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			method := attribute.String("http.request.method", r.Method)
			m.inFlight.Add(ctx, 1, metric.WithAttributes(method))
			defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method))

			rec := recordResponse(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				method,
				attribute.String("http.route", RoutePattern(r)),
				attribute.Int("http.response.status_code", rec.status),
				attribute.Bool("error", rec.status >= http.StatusBadRequest),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.requests.Add(ctx, 1, attrs)
			m.size.Record(ctx, rec.bytes, attrs)
		})
	}
}

// RoutePattern returns the matched chi route pattern, falling back to the
// raw path outside a chi router.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// UpstreamMetrics records calls the API makes on behalf of clients, such as
// the DMI proxy.
type UpstreamMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// NewUpstreamMetrics creates the upstream instruments on mp, or on the
// global provider when mp is nil.
func NewUpstreamMetrics(mp metric.MeterProvider) (*UpstreamMetrics, error) {
	meter := meterFrom(mp)
	var m UpstreamMetrics
	var errs [2]error

	m.duration, errs[0] = meter.Float64Histogram("upstream.request.duration",
		metric.WithDescription("Time spent waiting on upstreams"),
		metric.WithUnit("s"))
	m.requests, errs[1] = meter.Int64Counter("upstream.request.total",
		metric.WithDescription("Upstream requests sent"),
		metric.WithUnit("{request}"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequest records one upstream call. status is 0 when no response was
// received. Safe on a nil receiver.
func (m *UpstreamMetrics) RecordRequest(upstream, operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("upstream.name", upstream),
		attribute.String("upstream.operation", operation),
		attribute.Int("upstream.status_code", status),
		attribute.Bool("error", status == 0 || status >= http.StatusInternalServerError),
	)

	// The request context may already be cancelled once the response is copied.
	ctx := context.Background()
	m.duration.Record(ctx, duration.Seconds(), attrs)
	m.requests.Add(ctx, 1, attrs)
}
