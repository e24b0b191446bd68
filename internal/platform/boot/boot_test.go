package boot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dbcheck/internal/platform/otel"

	"go.uber.org/zap"
)

func testOptions() Options {
	return Options{
		ServiceName:     "dbcheck-test",
		AdminAddr:       "127.0.0.1:0",
		Trace:           otel.TraceConfig{Exporter: "none"},
		ShutdownTimeout: time.Second,
		Logger:          zap.NewNop(),
	}
}

func TestRun_RequiresServiceName(t *testing.T) {
	err := Run(context.Background(), Options{}, func(context.Context, Deps) (Main, error) { return Main{}, nil })
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	var shutdownCalled atomic.Bool
	var servingAtShutdown atomic.Bool

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, testOptions(), func(_ context.Context, d Deps) (Main, error) {
			if d.Log == nil || d.Metrics == nil || d.ReadyRoot == nil || d.Serving == nil {
				return Main{}, errors.New("missing deps")
			}
			return Main{
				Serve: func() error {
					cancel()
					<-stopped
					return nil
				},
				Shutdown: func(context.Context) error {
					servingAtShutdown.Store(d.Serving.Load())
					shutdownCalled.Store(true)
					close(stopped)
					return nil
				},
			}, nil
		})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run err=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
	if !shutdownCalled.Load() {
		t.Fatalf("Main.Shutdown not called")
	}
	if servingAtShutdown.Load() {
		t.Fatalf("readiness should be withdrawn before Main.Shutdown")
	}
}

func TestRun_PropagatesBuildError(t *testing.T) {
	want := errors.New("db connect failed")
	err := Run(context.Background(), testOptions(), func(context.Context, Deps) (Main, error) {
		return Main{}, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected build error, got %v", err)
	}
}

func TestRun_ServeErrorIsReturned(t *testing.T) {
	want := errors.New("listen tcp: address in use")
	err := Run(context.Background(), testOptions(), func(context.Context, Deps) (Main, error) {
		return Main{
			Serve:    func() error { return want },
			Shutdown: func(context.Context) error { return nil },
		}, nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected serve error, got %v", err)
	}
}
