package otel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func TestInit_NoneExporter(t *testing.T) {
	shutdown, err := Init(context.Background(), "dbcheck-test", TraceConfig{Exporter: "none"})
	if err != nil {
		t.Fatalf("Init err=%v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a real span from the SDK provider")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown err=%v", err)
	}
}

func TestInit_RejectsUnknownSettings(t *testing.T) {
	if _, err := Init(context.Background(), "x", TraceConfig{Exporter: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
	if _, err := Init(context.Background(), "x", TraceConfig{Exporter: "otlp", Endpoint: "localhost:4317", Protocol: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown protocol")
	}
}

func TestTraceConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", " OTLP ")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "TRUE")

	cfg := TraceConfigFromEnv()
	if cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || !cfg.Insecure {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestInitMetricsPrometheus_ExposesOTelInstruments(t *testing.T) {
	h, shutdown, err := InitMetricsPrometheus(context.Background(), "dbcheck-test", MetricsOptions{Registry: prom.NewRegistry()})
	if err != nil {
		t.Fatalf("InitMetricsPrometheus err=%v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	c, err := otel.Meter("test").Int64Counter("dbcheck.checks", metric.WithUnit("{check}"))
	if err != nil {
		t.Fatalf("counter err=%v", err)
	}
	c.Add(context.Background(), 3)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "dbcheck_checks") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
