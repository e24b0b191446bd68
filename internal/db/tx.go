package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside a database transaction.
//
// Rules:
//   - fn must not call Commit/Rollback.
//   - if fn returns an error or panics, the tx is rolled back.
//   - commit errors are returned.
func WithTx(ctx context.Context, b Beginner, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	if ctx == nil {
		return errors.New("db: nil context")
	}
	if b == nil {
		return errors.New("db: nil pool")
	}
	if fn == nil {
		return errors.New("db: nil fn")
	}

	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}
	return nil
}

// WithReadOnlyTx runs fn in a READ ONLY transaction, so a probe can never write.
func WithReadOnlyTx(ctx context.Context, b Beginner, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return WithTx(ctx, b, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}
