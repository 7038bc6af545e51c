package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"

	"github.com/google/uuid"
)

type favoriteService struct {
	repo ports.FavoriteRepository
}

// NewFavoriteService creates a new favorites service.
func NewFavoriteService(repo ports.FavoriteRepository) ports.FavoriteService {
	return &favoriteService{repo: repo}
}

func (s *favoriteService) List(ctx context.Context, userID uuid.UUID) ([]domain.Favorite, error) {
	favs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	return favs, nil
}

func (s *favoriteService) Add(ctx context.Context, userID uuid.UUID, input ports.FavoriteInput) (*domain.Favorite, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	fav := &domain.Favorite{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		ImageRef:    strings.TrimSpace(input.ImageRef),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create favorite: %w", err))
	}
	return fav, nil
}

// Remove is idempotent.
func (s *favoriteService) Remove(ctx context.Context, userID, favoriteID uuid.UUID) error {
	if _, err := s.repo.Delete(ctx, userID, favoriteID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete favorite: %w", err))
	}
	return nil
}
