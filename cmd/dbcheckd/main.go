package main

import (
	"context"
	"errors"
	"os"

	"dbcheck/internal/db"
	"dbcheck/internal/dbcheck"
	"dbcheck/internal/platform/authjwt"
	"dbcheck/internal/platform/boot"
	"dbcheck/internal/platform/config"
	"dbcheck/internal/platform/grpcutil"
	"dbcheck/internal/platform/health"
	"dbcheck/internal/platform/httpmw"
	"dbcheck/internal/platform/logging"
	"dbcheck/internal/platform/otel"
	"dbcheck/internal/server"
	"dbcheck/internal/users"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	log, err := logging.New(server.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	err = boot.Run(context.Background(), boot.Options{
		ServiceName:     server.ServiceName,
		AdminAddr:       cfg.AdminAddr,
		Trace:           otel.TraceConfigFromEnv(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          log,
	}, func(ctx context.Context, deps boot.Deps) (boot.Main, error) {
		return build(ctx, cfg, deps)
	})
	if err != nil {
		log.Error("dbcheckd exited", zap.Error(err))
		os.Exit(1)
	}
}

func build(ctx context.Context, cfg config.Config, deps boot.Deps) (boot.Main, error) {
	// Lazy: an unreachable database must still produce failure envelopes.
	pool, err := db.NewPool(ctx, cfg.DB.DSN, db.Options{
		MaxConns:           int32(cfg.DB.MaxConns),
		MinConns:           int32(cfg.DB.MinConns),
		InitialPingTimeout: cfg.DB.PingTimeout,
		ApplicationName:    server.ServiceName,
		Lazy:               true,
	})
	if err != nil {
		return boot.Main{}, err
	}
	if cfg.ReadyRequiresDB {
		deps.ReadyRoot.Add("postgres", health.SQLPing(pool))
	}

	checker := dbcheck.New(users.New(pool), deps.Log)

	opts := server.Options{
		HTTPAddr: cfg.HTTPAddr,
		GRPCAddr: cfg.GRPCAddr,
		Edge: httpmw.EdgePolicy{
			ServiceName: server.ServiceName,
			Timeout:     cfg.RequestTimeout,
			MaxInFlight: cfg.MaxInFlight,
		},
		GRPCLimits: grpcutil.Limits{
			DefaultTimeout: cfg.RequestTimeout,
			MaxInFlight:    cfg.MaxInFlight,
		},
		ProbeEvery: cfg.ProbeInterval,
	}
	if cfg.RateLimitRPS > 0 {
		opts.RateLimiter = httpmw.NewIPLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 0)
	}
	if cfg.JWTSecret != "" {
		tokens, err := authjwt.New([]byte(cfg.JWTSecret), cfg.JWTIssuer)
		if err != nil {
			pool.Close()
			return boot.Main{}, err
		}
		opts.Tokens = tokens
	} else {
		deps.Log.Warn("JWT secret not set; " + dbcheck.Path + " is unauthenticated")
	}

	srv, err := server.New(deps.Log, checker, opts)
	if err != nil {
		pool.Close()
		return boot.Main{}, err
	}

	return boot.Main{
		Serve: srv.Serve,
		Shutdown: func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			pool.Close()
			if errors.Is(err, context.DeadlineExceeded) {
				deps.Log.Warn("shutdown deadline exceeded")
			}
			return err
		},
	}, nil
}
