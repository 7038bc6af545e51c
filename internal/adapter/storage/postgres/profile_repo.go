package postgres

import (
	"context"
	"errors"
	"fmt"

	"food-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ports.ProfileRepository.
type ProfileRepo struct {
	pool Pool
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(pool Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Get fetches a profile. The DNI is returned encrypted.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	query := `SELECT user_id, first_name, last_name, address, dni_encrypted, info, image_url, updated_at
		FROM user_profiles WHERE user_id = $1`

	p := &domain.UserProfile{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Address, &p.DNIEncrypted, &p.Info, &p.ImageURL, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Upsert creates or replaces the profile of p.UserID.
func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.UserProfile) error {
	query := `INSERT INTO user_profiles (user_id, first_name, last_name, address, dni_encrypted, info, image_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			address = EXCLUDED.address,
			dni_encrypted = EXCLUDED.dni_encrypted,
			info = EXCLUDED.info,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Address, p.DNIEncrypted, p.Info, p.ImageURL, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
