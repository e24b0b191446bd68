package otel

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFn shuts down the OTEL providers.
type ShutdownFn func(context.Context) error

// TraceConfig selects the span exporter.
type TraceConfig struct {
	// Exporter is "otlp", "stdout" or "none". Empty means otlp when Endpoint
	// is set, stdout otherwise.
	Exporter string
	Endpoint string
	// Protocol is "grpc" (default) or "http/protobuf".
	Protocol string
	Insecure bool
}

// TraceConfigFromEnv reads the standard OTEL_* variables:
//   - OTEL_TRACES_EXPORTER
//   - OTEL_EXPORTER_OTLP_ENDPOINT
//   - OTEL_EXPORTER_OTLP_PROTOCOL
//   - OTEL_EXPORTER_OTLP_INSECURE
func TraceConfigFromEnv() TraceConfig {
	return TraceConfig{
		Exporter: strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_TRACES_EXPORTER"))),
		Endpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Protocol: strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))),
		Insecure: strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), "true"),
	}
}

func newResource(ctx context.Context, serviceName string, extraAttrs ...attribute.KeyValue) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithAttributes(extraAttrs...),
	)
}

// Init configures global OpenTelemetry tracing and W3C propagation.
// OTEL_TRACES_SAMPLER / OTEL_TRACES_SAMPLER_ARG are honored by the SDK.
func Init(ctx context.Context, serviceName string, cfg TraceConfig, extraAttrs ...attribute.KeyValue) (ShutdownFn, error) {
	res, err := newResource(ctx, serviceName, extraAttrs...)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	exp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// The provider shuts its batcher (and so the exporter) down itself.
	return tp.Shutdown, nil
}

// newTraceExporter returns a nil exporter for "none".
func newTraceExporter(ctx context.Context, cfg TraceConfig) (sdktrace.SpanExporter, error) {
	kind := cfg.Exporter
	if kind == "" {
		kind = "stdout"
		if cfg.Endpoint != "" {
			kind = "otlp"
		}
	}

	switch kind {
	case "none":
		return nil, nil
	case "stdout", "console":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
	default:
		return nil, errors.New("unsupported OTEL_TRACES_EXPORTER: " + cfg.Exporter)
	}

	switch cfg.Protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	case "http/protobuf", "http":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	default:
		return nil, errors.New("unsupported OTEL_EXPORTER_OTLP_PROTOCOL: " + cfg.Protocol)
	}
}
