// Package db holds the pgx transaction helper shared by the services.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// Transactor runs fn inside a database transaction. fn's error rolls the
// transaction back and is returned unchanged.
type Transactor interface {
	InTx(ctx context.Context, fn func(q dbgen.Querier) error) error
}

// Store pairs a pool with its generated queries.
type Store struct {
	Pool *pgxpool.Pool
	Q    *dbgen.Queries
}

// NewStore builds a Store on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool, Q: dbgen.New(pool)}
}

// InTx implements Transactor.
func (s *Store) InTx(ctx context.Context, fn func(q dbgen.Querier) error) error {
	if s == nil || s.Pool == nil {
		return errors.New("db: store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.Q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
