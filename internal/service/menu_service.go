package service

import (
	"context"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultMenuCacheTTL = 5 * time.Minute

// MenuServiceImpl implements ports.MenuService with a read-through cache.
type MenuServiceImpl struct {
	repo  ports.MenuRepository
	cache ports.MenuCache
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
}

// NewMenuService creates a new MenuServiceImpl.
func NewMenuService(repo ports.MenuRepository, cache ports.MenuCache, ttl time.Duration, log zerolog.Logger) *MenuServiceImpl {
	if ttl <= 0 {
		ttl = defaultMenuCacheTTL
	}
	return &MenuServiceImpl{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "menu").Logger(),
	}
}

// List returns the available dishes. Concurrent cache misses share one query.
func (s *MenuServiceImpl) List(ctx context.Context) ([]domain.MenuItem, error) {
	items, hit, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("menu cache read failed, loading from DB")
	}
	if hit {
		return items, nil
	}

	v, err, _ := s.group.Do("menu:available", func() (any, error) {
		items, err := s.repo.ListAvailable(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []domain.MenuItem{}
		}
		if err := s.cache.Set(ctx, items, s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("menu cache write failed")
		}
		return items, nil
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list menu: %w", err))
	}
	return v.([]domain.MenuItem), nil
}

func (s *MenuServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.MenuItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get menu item: %w", err))
	}
	if item == nil {
		return nil, apperror.ErrMenuItemNotFound()
	}
	return item, nil
}
