package probe

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dbcheck/internal/dbcheck"
	"dbcheck/internal/platform/health"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type flipChecker struct{ ok atomic.Bool }

func (f *flipChecker) CheckDatabase(context.Context) dbcheck.Result {
	if f.ok.Load() {
		return dbcheck.Success{Message: dbcheck.MsgSuccess}
	}
	return dbcheck.Failure{Message: dbcheck.MsgFailure, ErrorDetail: "connection refused"}
}

type recordingSetter struct {
	mu   sync.Mutex
	last map[string]healthpb.HealthCheckResponse_ServingStatus
}

func (r *recordingSetter) SetServingStatus(svc string, st healthpb.HealthCheckResponse_ServingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = map[string]healthpb.HealthCheckResponse_ServingStatus{}
	}
	r.last[svc] = st
}

func (r *recordingSetter) get(svc string) healthpb.HealthCheckResponse_ServingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[svc]
}

func TestOnce_MapsOutcome(t *testing.T) {
	chk := &flipChecker{}
	rec := &recordingSetter{}
	p := New(chk, rec, time.Second, nil)

	if got := p.Once(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("failure -> %v", got)
	}
	chk.ok.Store(true)
	if got := p.Once(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("success -> %v", got)
	}
	for _, svc := range []string{"", Service} {
		if rec.get(svc) != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q status=%v", svc, rec.get(svc))
		}
	}
}

func TestRun_StopsNotServing(t *testing.T) {
	chk := &flipChecker{}
	chk.ok.Store(true)
	rec := &recordingSetter{}
	p := New(chk, rec, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.get(Service) != healthpb.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatalf("prober never reported SERVING")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if rec.get(Service) != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after shutdown, got %v", rec.get(Service))
	}
}

func TestProber_ServesGRPCHealth(t *testing.T) {
	chk := &flipChecker{}
	hs := grpchealth.NewServer()
	p := New(chk, hs, time.Second, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err=%v", err)
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial err=%v", err)
	}
	defer conn.Close()

	check := health.GRPCHealthCheck(conn, Service)

	p.Once(context.Background())
	if err := check(context.Background()); err == nil {
		t.Fatalf("expected NOT_SERVING to fail the check")
	}

	chk.ok.Store(true)
	p.Once(context.Background())
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected SERVING, got %v", err)
	}
}
