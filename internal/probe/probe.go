// Package probe mirrors the database check into the standard gRPC health service.
package probe

import (
	"context"
	"time"

	"dbcheck/internal/dbcheck"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the grpc.health.v1 service name the prober reports under,
// in addition to the server-wide "" entry.
const Service = "dbcheck"

// StatusSetter is satisfied by *health.Server from google.golang.org/grpc/health.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

type Prober struct {
	check    dbcheck.DatabaseChecker
	status   StatusSetter
	interval time.Duration
	log      *zap.Logger
}

func New(check dbcheck.DatabaseChecker, status StatusSetter, interval time.Duration, log *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{check: check, status: status, interval: interval, log: log}
}

// Run probes immediately and then every interval until ctx is done, at which
// point it reports NOT_SERVING and returns ctx.Err().
func (p *Prober) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	last := p.Once(ctx)
	for {
		select {
		case <-ctx.Done():
			p.set(healthpb.HealthCheckResponse_NOT_SERVING)
			return ctx.Err()
		case <-t.C:
			cur := p.Once(ctx)
			if cur != last {
				p.log.Info("database serving status changed",
					zap.String("from", last.String()),
					zap.String("to", cur.String()),
				)
				last = cur
			}
		}
	}
}

// Once runs a single check and publishes its status.
func (p *Prober) Once(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if p.check.CheckDatabase(ctx).OK() {
		st = healthpb.HealthCheckResponse_SERVING
	}
	p.set(st)
	return st
}

func (p *Prober) set(st healthpb.HealthCheckResponse_ServingStatus) {
	p.status.SetServingStatus("", st)
	p.status.SetServingStatus(Service, st)
}
