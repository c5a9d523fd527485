package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes the instrument set shared by the pricing handlers.
type Metrics struct {
	calculations metric.Int64Counter
	failures     metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewMetrics registers the pricing instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/marginlab/api/internal/platform/observability")

	calculations, err := meter.Int64Counter("pricing.calculations",
		metric.WithDescription("Completed pricing calculations by kind."))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("pricing.calculation_failures",
		metric.WithDescription("Rejected or failed pricing calculations by kind."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("pricing.calculation_duration",
		metric.WithDescription("Pricing calculation latency in seconds."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{calculations: calculations, failures: failures, duration: duration}, nil
}

// RecordCalculation counts one completed calculation and its latency.
func (m *Metrics) RecordCalculation(ctx context.Context, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.calculations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFailure counts one rejected or failed calculation.
func (m *Metrics) RecordFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
