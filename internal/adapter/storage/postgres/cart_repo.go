package postgres

import (
	"context"
	"fmt"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cartLineColumns = `id, user_id, name, price::text, quantity::text, image_ref, created_at`

// CartRepo implements ports.CartRepository. Price and quantity are stored as
// JSONB so whatever the client sent survives untouched.
type CartRepo struct {
	pool Pool
}

// NewCartRepo creates a new CartRepo.
func NewCartRepo(pool Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

// Add inserts a cart line.
func (r *CartRepo) Add(ctx context.Context, l *domain.CartLine) error {
	query := `INSERT INTO cart_lines (id, user_id, name, price, quantity, image_ref, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.UserID, l.Name, nullableJSON(l.Price), nullableJSON(l.Quantity), l.ImageRef, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

// ListByUser returns the user's lines, oldest first.
func (r *CartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	query := `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return scanCartLines(rows)
}

// ListByUserForUpdate locks and returns the user's lines.
// This MUST be called within a transaction.
func (r *CartRepo) ListByUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.CartLine, error) {
	query := `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE user_id = $1 ORDER BY created_at, id FOR UPDATE`

	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines for update: %w", err)
	}
	return scanCartLines(rows)
}

// Delete removes a single line. Removing an absent line is not an error.
func (r *CartRepo) Delete(ctx context.Context, userID, lineID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`, userID, lineID)
	if err != nil {
		return false, fmt.Errorf("delete cart line: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteLines removes exactly the given lines within a transaction.
func (r *CartRepo) DeleteLines(ctx context.Context, tx pgx.Tx, userID uuid.UUID, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	tag, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND id = ANY($2::uuid[])`,
		userID, uuidStrings(lineIDs))
	if err != nil {
		return 0, fmt.Errorf("delete cart lines: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Clear removes every line of the user.
func (r *CartRepo) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCartLines(rows pgx.Rows) ([]domain.CartLine, error) {
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var (
			l               domain.CartLine
			price, quantity *string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &price, &quantity, &l.ImageRef, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		l.Price = rawOrNil(price)
		l.Quantity = rawOrNil(quantity)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}
