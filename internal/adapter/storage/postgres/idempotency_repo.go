package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const idempotencySweepBatch = 1000

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool  Pool
	batch int
}

func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool, batch: idempotencySweepBatch}
}

// Create records the response inside tx. A key that is already stored yields
// domain.ErrIdempotencyConflict and leaves tx usable.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.IdempotencyLog) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO idempotency_logs (key, resource_id, response_json, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO NOTHING`,
		entry.Key, entry.ResourceID, entry.ResponseJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert idempotency log %s: %w", entry.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyConflict
	}
	return nil
}

// Get returns nil, nil for an unknown key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	var entry domain.IdempotencyLog
	err := r.pool.QueryRow(ctx,
		`SELECT key, resource_id, response_json, created_at FROM idempotency_logs WHERE key = $1`, key,
	).Scan(&entry.Key, &entry.ResourceID, &entry.ResponseJSON, &entry.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get idempotency log %s: %w", key, err)
	}
	return &entry, nil
}

// DeleteBefore removes logs older than cutoff, oldest first, in batches so no
// single statement holds many row locks. Swept keys can be reused.
func (r *IdempotencyRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM idempotency_logs WHERE key IN (
			   SELECT key FROM idempotency_logs WHERE created_at < $1 ORDER BY created_at LIMIT $2
			 )`,
			cutoff, r.batch,
		)
		if err != nil {
			return total, fmt.Errorf("delete idempotency logs: %w", err)
		}
		total += tag.RowsAffected()
		if tag.RowsAffected() < int64(r.batch) {
			return total, nil
		}
	}
}
