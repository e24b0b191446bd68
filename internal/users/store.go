package users

import (
	"context"
	"errors"
	"time"

	"dbcheck/internal/db"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidLimit = errors.New("users: limit must be positive")

// User mirrors a row of the users table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      *string   `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type Store struct {
	DB db.Beginner
}

func New(b db.Beginner) *Store {
	return &Store{DB: b}
}

// FetchUsers returns at most limit users in whatever order Postgres yields.
// The query runs in a read-only transaction. An empty table yields an empty,
// non-nil slice.
func (s *Store) FetchUsers(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var out []User
	err := db.WithReadOnlyTx(ctx, s.DB, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id::text, email, name, created_at, updated_at
			FROM users
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[User])
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}
