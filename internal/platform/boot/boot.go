package boot

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"dbcheck/internal/platform/admin"
	"dbcheck/internal/platform/health"
	"dbcheck/internal/platform/logging"
	"dbcheck/internal/platform/otel"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Main represents the primary server(s) of a service.
type Main struct {
	Serve    func() error
	Shutdown func(context.Context) error
}

// Deps are the shared platform dependencies provided to the service builder.
type Deps struct {
	Log       *zap.Logger
	Metrics   http.Handler
	ReadyRoot *health.Node
	Serving   *atomic.Bool
}

// Options configures the platform boot.
type Options struct {
	ServiceName string

	// AdminAddr serves /metrics, /livez, /readyz. Defaults to :8081.
	AdminAddr string

	Trace otel.TraceConfig

	// OTELExtraAttrs are added to both tracing + metrics resources.
	OTELExtraAttrs []attribute.KeyValue

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Logger overrides the default JSON logger.
	Logger *zap.Logger
}

// Run boots common platform pieces (logger, OTEL, metrics, admin server, readiness root),
// then runs the service's main server and blocks until it exits or a shutdown signal arrives.
//
// Shutdown order: stop advertising readiness, drain main, stop admin, flush telemetry.
func Run(ctx context.Context, opts Options, build func(ctx context.Context, deps Deps) (Main, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.ServiceName == "" {
		return errors.New("boot: ServiceName is required")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.AdminAddr == "" {
		opts.AdminAddr = ":8081"
	}

	log := opts.Logger
	if log == nil {
		var err error
		if log, err = logging.New(opts.ServiceName); err != nil {
			return err
		}
	}
	defer func() { _ = log.Sync() }()

	// Canceled on SIGINT/SIGTERM or when the main server exits.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	shutdownTrace, err := otel.Init(runCtx, opts.ServiceName, opts.Trace, opts.OTELExtraAttrs...)
	if err != nil {
		return err
	}
	metricsH, shutdownMetrics, err := otel.InitMetricsPrometheus(runCtx, opts.ServiceName,
		otel.MetricsOptions{RuntimeMetrics: true}, opts.OTELExtraAttrs...)
	if err != nil {
		_ = shutdownTrace(context.Background())
		return err
	}

	ready := health.NewReadyGraph()
	ready.Add("otel", health.CheckAlwaysReady())
	ready.Add("metrics", health.CheckAlwaysReady())

	var serving atomic.Bool
	serving.Store(true)

	adminSrv, err := admin.Start(log, admin.Options{
		Addr:      opts.AdminAddr,
		Metrics:   metricsH,
		ReadyRoot: ready,
		ServingFn: serving.Load,
	})
	if err != nil {
		_ = shutdownMetrics(context.Background())
		_ = shutdownTrace(context.Background())
		return err
	}

	flush := func(shutdownCtx context.Context) []error {
		var errs []error
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownMetrics(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownTrace(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errs
	}

	main, err := build(runCtx, Deps{
		Log:       log,
		Metrics:   metricsH,
		ReadyRoot: ready,
		Serving:   &serving,
	})
	if err == nil && (main.Serve == nil || main.Shutdown == nil) {
		err = errors.New("boot: Main.Serve and Main.Shutdown are required")
	}
	if err != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer shutdownCancel()
		return errors.Join(append([]error{err}, flush(shutdownCtx)...)...)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- main.Serve() }()

	var serveErr error
	select {
	case <-runCtx.Done():
	case sig := <-sigc:
		log.Info("shutdown signal", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("main server exited", zap.Error(serveErr))
		}
	}
	cancel()

	serving.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer shutdownCancel()

	errs := []error{serveErr}
	if err := main.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, flush(shutdownCtx)...)
	return errors.Join(errs...)
}
