package grpcutil

import (
	"context"
	"time"

	"dbcheck/internal/platform/logging"
	"dbcheck/internal/platform/metrics"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Limits configures default timeouts + backpressure for gRPC servers.
type Limits struct {
	// DefaultTimeout is applied when the incoming context has no deadline.
	DefaultTimeout time.Duration
	// MaxInFlight bounds concurrent unary requests and streams.
	MaxInFlight int
}

func keepaliveOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 2 * time.Minute,
			Time:                  2 * time.Hour,
			Timeout:               20 * time.Second,
		}),
		// Probes (kubelet, grpc_health_probe) ping often; don't GOAWAY them.
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// ServerOptions adds keepalives, OTel tracing, metrics, structured request
// logging and the optional limits.
func ServerOptions(service string, log *zap.Logger, lim Limits) []grpc.ServerOption {
	if log == nil {
		log = zap.NewNop()
	}
	opts := keepaliveOptions()
	opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))

	var mu grpc.UnaryServerInterceptor
	var ms grpc.StreamServerInterceptor
	if m, err := metrics.NewGRPCServerMetrics(service); err == nil {
		mu = m.UnaryServerInterceptor()
		ms = m.StreamServerInterceptor()
	} else {
		log.Warn("grpc metrics disabled (init failed)", zap.Error(err))
	}

	// Limits first so rejected calls cost as little as possible.
	var unary []grpc.UnaryServerInterceptor
	if lim.MaxInFlight > 0 {
		unary = append(unary, UnaryInFlightLimit(lim.MaxInFlight))
	}
	if lim.DefaultTimeout > 0 {
		unary = append(unary, UnaryTimeout(lim.DefaultTimeout))
	}
	if mu != nil {
		unary = append(unary, mu)
	}
	unary = append(unary, requestLogUnary(log))

	var stream []grpc.StreamServerInterceptor
	if lim.MaxInFlight > 0 {
		stream = append(stream, StreamInFlightLimit(lim.MaxInFlight))
	}
	if ms != nil {
		stream = append(stream, ms)
	}
	stream = append(stream, requestLogStream(log))

	return append(opts,
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
}

// rpcLogger builds the per-call logger and stores it in the returned context.
func rpcLogger(ctx context.Context, base *zap.Logger, method string, stream bool) (context.Context, *zap.Logger) {
	lg := logging.WithTrace(ctx, base).With(
		zap.String("rpc.system", "grpc"),
		zap.String("rpc.method", method),
	)
	if stream {
		lg = lg.With(zap.Bool("rpc.stream", true))
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		lg = lg.With(zap.String("client.addr", p.Addr.String()))
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if rid := first(md, "x-request-id"); rid != "" {
			lg = lg.With(zap.String("request_id", rid))
		}
		if ua := first(md, "user-agent"); ua != "" {
			lg = lg.With(zap.String("user_agent", ua))
		}
	}
	return logging.With(ctx, lg), lg
}

// Health checks are chatty, so successful calls log at debug.
func logRPC(lg *zap.Logger, err error, start time.Time) {
	code := status.Code(err)
	fields := []zap.Field{
		zap.String("rpc.code", code.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		lg.Warn("rpc", append(fields, zap.Error(err))...)
		return
	}
	lg.Debug("rpc", fields...)
}

func requestLogUnary(base *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx, lg := rpcLogger(ctx, base, info.FullMethod, false)
		resp, err := handler(ctx, req)
		logRPC(lg, err, start)
		return resp, err
	}
}

func requestLogStream(base *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		ctx, lg := rpcLogger(ss.Context(), base, info.FullMethod, true)
		err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
		logRPC(lg, err, start)
		return err
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

func first(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
