package metrics

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterScope is the instrumentation scope; the service rides on service.name.
const meterScope = "dbcheck/internal/platform/metrics"

// HTTPServerMetrics provides low-cardinality HTTP server metrics.
type HTTPServerMetrics struct {
	service string

	inflight metric.Int64UpDownCounter
	errors   metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewHTTPServerMetrics(service string) (*HTTPServerMetrics, error) {
	return NewHTTPServerMetricsWith(otel.GetMeterProvider(), service)
}

func NewHTTPServerMetricsWith(mp metric.MeterProvider, service string) (*HTTPServerMetrics, error) {
	m := mp.Meter(meterScope)

	inflight, err := m.Int64UpDownCounter(
		"http.server.inflight",
		metric.WithDescription("In-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	errors, err := m.Int64Counter(
		"http.server.errors",
		metric.WithDescription("HTTP 5xx responses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP server duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPServerMetrics{
		service:  service,
		inflight: inflight,
		errors:   errors,
		latency:  latency,
	}, nil
}

// Middleware records in-flight, latency and 5xx counts. The route label is the
// ServeMux pattern, never the raw path.
func (h *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	if h == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusCapturingResponseWriter{ResponseWriter: w, status: http.StatusOK}

		base := []attribute.KeyValue{
			attribute.String("service.name", h.service),
			attribute.String("http.method", r.Method),
		}

		h.inflight.Add(r.Context(), 1, metric.WithAttributes(base...))
		defer h.inflight.Add(r.Context(), -1, metric.WithAttributes(base...))

		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		attrs := append(base,
			attribute.String("http.route", route),
			attribute.String("http.status_code", strconv.Itoa(sw.status)),
		)

		h.latency.Record(r.Context(), time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		if sw.status >= 500 {
			h.errors.Add(r.Context(), 1, metric.WithAttributes(attrs...))
		}
	})
}

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusCapturingResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
