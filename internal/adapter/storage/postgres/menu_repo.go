package postgres

import (
	"context"
	"errors"
	"fmt"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const menuColumns = `id, name, description, price::text, image_ref, available, created_at`

// MenuRepo implements ports.MenuRepository.
type MenuRepo struct {
	pool Pool
}

// NewMenuRepo creates a new MenuRepo.
func NewMenuRepo(pool Pool) *MenuRepo {
	return &MenuRepo{pool: pool}
}

// ListAvailable returns the dishes that can be ordered, by name.
func (r *MenuRepo) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE available ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

// GetByID fetches a dish regardless of availability.
func (r *MenuRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return m, nil
}

func scanMenuItem(row pgx.Row) (*domain.MenuItem, error) {
	var (
		m     domain.MenuItem
		price string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &price, &m.ImageRef, &m.Available, &m.CreatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	m.Price = p
	return &m, nil
}
