package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ping runs "select 1" on a pooled connection. Unlike pool.Ping it goes
// through the query path, so auth and search_path problems surface too.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	if ctx == nil {
		return errors.New("db: nil context")
	}
	if pool == nil {
		return errors.New("db: nil pool")
	}

	var one int
	return pool.QueryRow(ctx, "select 1").Scan(&one)
}
