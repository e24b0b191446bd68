package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Options struct {
	MaxConns int32
	MinConns int32

	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// InitialPingTimeout bounds the fail-fast ping done by NewPool.
	InitialPingTimeout time.Duration

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string

	// Lazy skips the initial ping so a service can start while Postgres is down
	// and report the outage itself.
	Lazy bool
}

func (o Options) withDefaults() Options {
	if o.InitialPingTimeout <= 0 {
		o.InitialPingTimeout = 2 * time.Second
	}
	return o
}

// NewPool parses dsn, applies the non-zero tuning in opts and pings once
// unless opts.Lazy is set.
// Zero-valued options keep the pgx defaults.
func NewPool(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	if ctx == nil {
		return nil, errors.New("db: nil context")
	}
	if dsn == "" {
		return nil, errors.New("db: empty DSN")
	}

	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if cfg.MinConns > 0 && cfg.MaxConns > 0 && cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("db: invalid pool sizing: MinConns(%d) > MaxConns(%d)", cfg.MinConns, cfg.MaxConns)
	}

	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}
	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}

	if opts.Lazy {
		return pool, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.InitialPingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: initial ping: %w", err)
	}

	return pool, nil
}
