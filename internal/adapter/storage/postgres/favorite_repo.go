package postgres

import (
	"context"
	"fmt"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
)

// FavoriteRepo implements ports.FavoriteRepository.
type FavoriteRepo struct {
	pool Pool
}

// NewFavoriteRepo creates a new FavoriteRepo.
func NewFavoriteRepo(pool Pool) *FavoriteRepo {
	return &FavoriteRepo{pool: pool}
}

// ListByUser returns saved restaurants, newest first.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	query := `SELECT id, user_id, name, description, image_ref, created_at
		FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favs []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.ImageRef, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favs, nil
}

// Create inserts a favorite.
func (r *FavoriteRepo) Create(ctx context.Context, f *domain.Favorite) error {
	query := `INSERT INTO favorites (id, user_id, name, description, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, f.ID, f.UserID, f.Name, f.Description, f.ImageRef, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// Delete removes a favorite owned by userID.
func (r *FavoriteRepo) Delete(ctx context.Context, userID, favoriteID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND id = $2`, userID, favoriteID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
