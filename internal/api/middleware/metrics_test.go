package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
)

func newMeterProvider(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func attr(set attribute.Set, key string) attribute.Value {
	v, _ := set.Value(attribute.Key(key))
	return v
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	mp, reader := newMeterProvider(t)
	metrics, err := middleware.NewMetrics(mp)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/v1/me/trips/{tripId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"trp_123"}`))
	})

	for _, id := range []string{"trp_123", "trp_456"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/me/trips/"+id, http.NoBody))
	}

	data := collect(t, reader)

	total, ok := data["http.server.request.total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1, "both trips share one series")
	dp := total.DataPoints[0]
	assert.Equal(t, int64(2), dp.Value)
	assert.Equal(t, "/v1/me/trips/{tripId}", attr(dp.Attributes, "http.route").AsString())
	assert.Equal(t, int64(http.StatusOK), attr(dp.Attributes, "http.response.status_code").AsInt64())
	assert.Equal(t, http.MethodGet, attr(dp.Attributes, "http.request.method").AsString())
	assert.False(t, attr(dp.Attributes, "error").AsBool())

	size, ok := data["http.server.response.body.size"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, size.DataPoints, 1)
	assert.Equal(t, int64(2*len(`{"id":"trp_123"}`)), size.DataPoints[0].Sum)

	active, ok := data["http.server.active_requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Zero(t, active.DataPoints[0].Value)
}

func TestMetrics_MarksErrors(t *testing.T) {
	mp, reader := newMeterProvider(t)
	metrics, err := middleware.NewMetrics(mp)
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dmi/climateData/collections/stationValue/items", http.NoBody))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	total := collect(t, reader)["http.server.request.total"].(metricdata.Sum[int64])
	require.Len(t, total.DataPoints, 1)
	dp := total.DataPoints[0]
	assert.True(t, attr(dp.Attributes, "error").AsBool())
	assert.Equal(t, "/v1/dmi/climateData/collections/stationValue/items", attr(dp.Attributes, "http.route").AsString())
}

func TestMetrics_ImplicitOK(t *testing.T) {
	mp, reader := newMeterProvider(t)
	metrics, err := middleware.NewMetrics(mp)
	require.NoError(t, err)

	handler := metrics.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	total := collect(t, reader)["http.server.request.total"].(metricdata.Sum[int64])
	require.Len(t, total.DataPoints, 1)
	assert.Equal(t, int64(http.StatusOK), attr(total.DataPoints[0].Attributes, "http.response.status_code").AsInt64())
}

func TestNewMetrics_GlobalProvider(t *testing.T) {
	metrics, err := middleware.NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, metrics)
}

func TestRoutePattern_OutsideRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/plain/path", http.NoBody)
	assert.Equal(t, "/plain/path", middleware.RoutePattern(req))
}

func TestUpstreamMetrics_RecordRequest(t *testing.T) {
	mp, reader := newMeterProvider(t)
	um, err := middleware.NewUpstreamMetrics(mp)
	require.NoError(t, err)

	um.RecordRequest("dmi", "climateData", http.StatusOK, 120*time.Millisecond)
	um.RecordRequest("dmi", "climateData", http.StatusOK, 80*time.Millisecond)
	um.RecordRequest("dmi", "oceanObs", 0, time.Second)

	total := collect(t, reader)["upstream.request.total"].(metricdata.Sum[int64])
	require.Len(t, total.DataPoints, 2)

	byOp := make(map[string]metricdata.DataPoint[int64])
	for _, dp := range total.DataPoints {
		byOp[attr(dp.Attributes, "upstream.operation").AsString()] = dp
	}
	assert.Equal(t, int64(2), byOp["climateData"].Value)
	assert.False(t, attr(byOp["climateData"].Attributes, "error").AsBool())
	assert.Equal(t, int64(1), byOp["oceanObs"].Value)
	assert.True(t, attr(byOp["oceanObs"].Attributes, "error").AsBool())

	var nilMetrics *middleware.UpstreamMetrics
	nilMetrics.RecordRequest("dmi", "metObs", http.StatusBadGateway, time.Millisecond)
}
