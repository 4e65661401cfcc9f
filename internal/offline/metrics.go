package offline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/fangstlog/fangstlog/internal/offline"

// Metrics holds the OpenTelemetry instruments of the queue.
type Metrics struct {
	synced          metric.Int64Counter
	degraded        metric.Int64Counter
	weatherFailures metric.Int64Counter
	writeFailures   metric.Int64Counter
	depth           metric.Int64Gauge
}

// NewMetrics creates the queue instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	synced, err := meter.Int64Counter(
		"offline.trips.synced",
		metric.WithDescription("Queued trips written to the remote store"),
		metric.WithUnit("{trip}"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"offline.trips.degraded",
		metric.WithDescription("Queued trips whose weather retries were exhausted"),
		metric.WithUnit("{trip}"),
	)
	if err != nil {
		return nil, err
	}

	weatherFailures, err := meter.Int64Counter(
		"offline.weather.failures",
		metric.WithDescription("Drain passes where weather enrichment failed"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	writeFailures, err := meter.Int64Counter(
		"offline.write.failures",
		metric.WithDescription("Failed writes to the remote trip store"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	depth, err := meter.Int64Gauge(
		"offline.queue.depth",
		metric.WithDescription("Trips waiting in the offline queue"),
		metric.WithUnit("{trip}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		synced:          synced,
		degraded:        degraded,
		weatherFailures: weatherFailures,
		writeFailures:   writeFailures,
		depth:           depth,
	}, nil
}

// A nil *Metrics records nothing.

func (m *Metrics) recordSynced(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.synced.Add(ctx, int64(n))
}

func (m *Metrics) recordDegraded(ctx context.Context) {
	if m == nil {
		return
	}
	m.degraded.Add(ctx, 1)
}

func (m *Metrics) recordWeatherFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.weatherFailures.Add(ctx, 1)
}

func (m *Metrics) recordWriteFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.writeFailures.Add(ctx, 1)
}

func (m *Metrics) recordDepth(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.depth.Record(ctx, int64(n))
}
