package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCServerMetrics provides low-cardinality gRPC server metrics.
type GRPCServerMetrics struct {
	service string

	inflight metric.Int64UpDownCounter
	errors   metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewGRPCServerMetrics(service string) (*GRPCServerMetrics, error) {
	return NewGRPCServerMetricsWith(otel.GetMeterProvider(), service)
}

func NewGRPCServerMetricsWith(mp metric.MeterProvider, service string) (*GRPCServerMetrics, error) {
	m := mp.Meter(meterScope)

	inflight, err := m.Int64UpDownCounter(
		"rpc.server.inflight",
		metric.WithDescription("In-flight RPCs"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	errors, err := m.Int64Counter(
		"rpc.server.errors",
		metric.WithDescription("RPC errors (non-OK)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram(
		"rpc.server.duration",
		metric.WithDescription("RPC server duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &GRPCServerMetrics{
		service:  service,
		inflight: inflight,
		errors:   errors,
		latency:  latency,
	}, nil
}

func (g *GRPCServerMetrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if g == nil {
			return handler(ctx, req)
		}
		done := g.begin(ctx, info.FullMethod, false)
		resp, err := handler(ctx, req)
		done(err)
		return resp, err
	}
}

// StreamServerInterceptor covers Health/Watch, which stays open for the
// lifetime of a client subscription.
func (g *GRPCServerMetrics) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if g == nil {
			return handler(srv, ss)
		}
		done := g.begin(ss.Context(), info.FullMethod, true)
		err := handler(srv, ss)
		done(err)
		return err
	}
}

func (g *GRPCServerMetrics) begin(ctx context.Context, fullMethod string, stream bool) func(error) {
	start := time.Now()
	base := []attribute.KeyValue{
		attribute.String("service.name", g.service),
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.method", lowCardMethod(fullMethod)),
	}
	if stream {
		base = append(base, attribute.Bool("rpc.stream", true))
	}
	g.inflight.Add(ctx, 1, metric.WithAttributes(base...))

	return func(err error) {
		g.inflight.Add(ctx, -1, metric.WithAttributes(base...))

		code := status.Code(err)
		attrs := append(base, attribute.String("rpc.code", code.String()))
		g.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		if code != codes.OK {
			g.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	}
}

// lowCardMethod turns "/pkg.Service/Method" into "Service/Method" to keep labels sane.
func lowCardMethod(full string) string {
	full = strings.TrimPrefix(full, "/")
	svc, method, ok := strings.Cut(full, "/")
	if !ok || strings.Contains(method, "/") {
		return full
	}
	if dot := strings.LastIndex(svc, "."); dot >= 0 {
		svc = svc[dot+1:]
	}
	return svc + "/" + method
}
