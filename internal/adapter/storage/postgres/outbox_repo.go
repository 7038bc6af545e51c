package postgres

import (
	"context"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Insert writes an event in the same transaction as the change it records.
func (r *OutboxRepo) Insert(ctx context.Context, tx pgx.Tx, e *domain.OutboxEvent) error {
	query := `INSERT INTO outbox_events (id, event_type, key, payload, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query, e.ID, e.EventType, e.Key, e.Payload, e.Attempts, e.NextAttemptAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchPending returns unsent events that are due, oldest first. Events that
// reached maxAttempts stay in the table for inspection but are not retried.
func (r *OutboxRepo) FetchPending(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.OutboxEvent, error) {
	query := `SELECT id, event_type, key, payload, attempts, next_attempt_at, last_error, sent_at, created_at
		FROM outbox_events
		WHERE sent_at IS NULL AND next_attempt_at <= $1 AND attempts < $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, now, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Key, &e.Payload, &e.Attempts,
			&e.NextAttemptAt, &e.LastError, &e.SentAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}

// MarkSent records a successful publish.
func (r *OutboxRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE outbox_events SET sent_at = $1, last_error = NULL WHERE id = $2`, sentAt, id)
	if err != nil {
		return fmt.Errorf("mark outbox event sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed publish and schedules the next attempt.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt time.Time, lastErr string) error {
	query := `UPDATE outbox_events SET attempts = $1, next_attempt_at = $2, last_error = $3 WHERE id = $4`

	_, err := r.pool.Exec(ctx, query, attempts, nextAttemptAt, lastErr, id)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
