package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache. It only holds
// replayable responses; the idempotency_logs table stays authoritative.
type IdempotencyCache struct {
	client *goredis.Client
}

// NewIdempotencyCache creates a new Redis-backed idempotency cache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func idempotencyKey(key string) string {
	return keyPrefix + "idem:" + key
}

// Get returns the stored response, or nil when the key is unknown.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, _, err := getRaw(ctx, c.client, idempotencyKey(key))
	return raw, err
}

// Set stores value only if the key is free: the first response for a key is
// the one every retry must see.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k := idempotencyKey(key)
	err := c.client.SetArgs(ctx, k, value, goredis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}
