package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-wallet-service/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// MenuCache implements ports.MenuCache, storing the available menu as one JSON value.
type MenuCache struct {
	client *goredis.Client
	key    string
}

// NewMenuCache creates a Redis-backed menu cache.
func NewMenuCache(client *goredis.Client) *MenuCache {
	return &MenuCache{client: client, key: keyPrefix + "menu:available"}
}

// Get returns the cached menu. ok is false on a miss.
func (c *MenuCache) Get(ctx context.Context) ([]domain.MenuItem, bool, error) {
	raw, ok, err := getRaw(ctx, c.client, c.key)
	if err != nil || !ok {
		return nil, false, err
	}
	var items []domain.MenuItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached menu: %w", err)
	}
	return items, true, nil
}

// Set replaces the cached menu.
func (c *MenuCache) Set(ctx context.Context, items []domain.MenuItem, ttl time.Duration) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode menu: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
