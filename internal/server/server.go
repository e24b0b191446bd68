// Package server assembles the dbcheckd listeners: the public HTTP API and the
// optional grpc.health.v1 endpoint fed by the prober.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"dbcheck/internal/apidoc"
	"dbcheck/internal/dbcheck"
	"dbcheck/internal/platform/grpcutil"
	"dbcheck/internal/platform/health"
	"dbcheck/internal/platform/httpmw"
	"dbcheck/internal/platform/metrics"
	"dbcheck/internal/probe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "dbcheck"

type Options struct {
	HTTPAddr string
	// GRPCAddr enables the gRPC health listener when non-empty.
	GRPCAddr string

	Edge        httpmw.EdgePolicy
	GRPCLimits  grpcutil.Limits
	ProbeEvery  time.Duration
	RateLimiter *httpmw.IPLimiter   // optional
	Tokens      httpmw.TokenParser // optional; nil leaves the endpoint open
}

type Server struct {
	log     *zap.Logger
	http    *http.Server
	httpLn  net.Listener
	grpc    *grpc.Server
	grpcLn  net.Listener
	health  *grpchealth.Server
	prober  *probe.Prober
	stopCtx context.Context
	stop    context.CancelFunc
}

// NewHTTPHandler returns the public API handler wrapped in the edge policy.
// Rate limiting and auth apply to the check endpoint only; /healthz and the
// API document stay open.
func NewHTTPHandler(log *zap.Logger, checker dbcheck.DatabaseChecker, opts Options) http.Handler {
	m, err := metrics.NewHTTPServerMetrics(ServiceName)
	if err != nil && log != nil {
		log.Warn("http metrics disabled (init failed)", zap.Error(err))
	}

	api := httpmw.Chain{
		httpmw.WithRateLimit(opts.RateLimiter),
		httpmw.WithAuth(opts.Tokens),
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+dbcheck.Path, m.Middleware(api.Then(dbcheck.Handler(checker, log))))
	mux.Handle("GET /healthz", health.Livez())
	mux.Handle("GET "+apidoc.Path, apidoc.Handler())

	edge := opts.Edge
	if edge.ServiceName == "" {
		edge.ServiceName = ServiceName
	}
	return httpmw.BuildEdgeHandler(log, edge, mux)
}

// New binds the listeners up front so address errors surface before serving.
func New(log *zap.Logger, checker dbcheck.DatabaseChecker, opts Options) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if checker == nil {
		return nil, errors.New("server: nil checker")
	}

	httpLn, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		log: log,
		http: &http.Server{
			Handler:           NewHTTPHandler(log, checker, opts),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		httpLn: httpLn,
	}
	s.stopCtx, s.stop = context.WithCancel(context.Background())

	if opts.GRPCAddr != "" {
		grpcLn, err := net.Listen("tcp", opts.GRPCAddr)
		if err != nil {
			_ = httpLn.Close()
			return nil, err
		}
		s.grpcLn = grpcLn
		s.grpc = grpc.NewServer(grpcutil.ServerOptions(ServiceName, log, opts.GRPCLimits)...)
		s.health = grpchealth.NewServer()
		healthpb.RegisterHealthServer(s.grpc, s.health)
		s.prober = probe.New(checker, s.health, opts.ProbeEvery, log)
	}
	return s, nil
}

func (s *Server) HTTPAddr() string { return s.httpLn.Addr().String() }

func (s *Server) GRPCAddr() string {
	if s.grpcLn == nil {
		return ""
	}
	return s.grpcLn.Addr().String()
}

// Serve blocks until every listener has stopped. Shutdown makes it return nil.
func (s *Server) Serve() error {
	g, ctx := errgroup.WithContext(s.stopCtx)

	g.Go(func() error {
		s.log.Info("http listening", zap.String("addr", s.HTTPAddr()), zap.String("route", dbcheck.Path))
		if err := s.http.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.grpc != nil {
		g.Go(func() error {
			s.log.Info("grpc health listening", zap.String("addr", s.GRPCAddr()))
			return s.grpc.Serve(s.grpcLn)
		})
		g.Go(func() error {
			if err := s.prober.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	// A listener that fails takes the others down with it.
	g.Go(func() error {
		<-ctx.Done()
		if s.stopCtx.Err() != nil {
			return nil
		}
		_ = s.http.Close()
		if s.grpc != nil {
			s.grpc.Stop()
		}
		return nil
	})

	return g.Wait()
}

// Shutdown reports NOT_SERVING, stops the prober, then drains both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()

	var errs []error
	if s.health != nil {
		s.health.Shutdown()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.grpc != nil {
		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.log.Warn("graceful stop timed out; forcing stop")
			s.grpc.Stop()
		}
	}
	return errors.Join(errs...)
}
