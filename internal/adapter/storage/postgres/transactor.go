package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor using a Pool.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

// NewTransactor creates a new Transactor. A positive lockTimeout bounds how
// long any statement in the transaction waits for a row lock.
func NewTransactor(pool Pool, lockTimeout time.Duration) *Transactor {
	return &Transactor{pool: pool, lockTimeout: lockTimeout}
}

// Begin starts a new database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if t.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return tx, nil
}
