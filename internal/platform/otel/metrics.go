package otel

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsOptions tunes InitMetricsPrometheus.
type MetricsOptions struct {
	// RuntimeMetrics starts Go runtime instrumentation (GC, heap, goroutines).
	RuntimeMetrics bool
	// Registry overrides the per-service registry. Tests pass their own.
	Registry *prom.Registry
}

// InitMetricsPrometheus wires an OTEL MeterProvider backed by a Prometheus scrape endpoint.
// It returns the /metrics handler and a shutdown function.
func InitMetricsPrometheus(
	ctx context.Context,
	serviceName string,
	opts MetricsOptions,
	extraAttrs ...attribute.KeyValue,
) (http.Handler, ShutdownFn, error) {
	res, err := newResource(ctx, serviceName, extraAttrs...)
	if err != nil {
		return nil, nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}

	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(mp)

	if opts.RuntimeMetrics {
		if err := runtime.Start(
			runtime.WithMeterProvider(mp),
			runtime.WithMinimumReadMemStatsInterval(10*time.Second),
		); err != nil {
			_ = mp.Shutdown(ctx)
			return nil, nil, err
		}
	}

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), mp.Shutdown, nil
}
