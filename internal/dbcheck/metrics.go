package dbcheck

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type checkMetrics struct {
	checks  metric.Int64Counter
	latency metric.Float64Histogram
}

func newCheckMetrics(mp metric.MeterProvider) (*checkMetrics, error) {
	m := mp.Meter("dbcheck")

	checks, err := m.Int64Counter(
		"dbcheck.checks",
		metric.WithDescription("Database connectivity checks by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram(
		"dbcheck.check.duration",
		metric.WithDescription("Database connectivity check duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &checkMetrics{checks: checks, latency: latency}, nil
}

func (m *checkMetrics) record(ctx context.Context, r Result, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if r != nil && r.OK() {
		outcome = "success"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.checks.Add(ctx, 1, attrs)
	m.latency.Record(ctx, d.Seconds(), attrs)
}
