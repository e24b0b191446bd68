package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dbcheck/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 1 * time.Second

// SQLPing runs db.Ping with a short timeout.
func SQLPing(pool *pgxpool.Pool) Check {
	return func(ctx context.Context) error {
		if pool == nil {
			return errors.New("db is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		return db.Ping(ctx, pool)
	}
}

// GRPCHealthCheck checks downstream readiness using the standard gRPC health service.
func GRPCHealthCheck(conn grpc.ClientConnInterface, service string) Check {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("grpc conn is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("health status: %s", resp.GetStatus())
		}
		return nil
	}
}
