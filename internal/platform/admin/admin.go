package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"dbcheck/internal/platform/health"

	"go.uber.org/zap"
)

// Server is a small admin HTTP server exposing /metrics, /livez, /readyz.
// It listens separately from the public API so probes and scrapes bypass the
// edge middleware (auth, rate limits).
type Server struct {
	http *http.Server
	ln   net.Listener
}

type Options struct {
	Addr         string
	Metrics      http.Handler // optional
	ReadyRoot    *health.Node // optional
	ServingFn    func() bool  // optional (NOT_SERVING gate)
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func Start(log *zap.Logger, opts Options) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("GET /livez", health.Livez())
	if opts.ReadyRoot != nil {
		mux.Handle("GET /readyz", health.Handler(opts.ReadyRoot, opts.ServingFn))
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       orDur(opts.ReadTimeout, 5*time.Second),
		WriteTimeout:      orDur(opts.WriteTimeout, 10*time.Second),
		IdleTimeout:       orDur(opts.IdleTimeout, 60*time.Second),
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, err
	}

	as := &Server{http: srv, ln: ln}
	go func() {
		log.Info("admin server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin server error", zap.Error(err))
		}
	}()
	return as, nil
}

// Addr is the bound listener address (useful with ":0").
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func orDur(v, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}
	return v
}
