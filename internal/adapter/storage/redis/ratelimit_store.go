package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"food-wallet-service/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// slidingWindow estimates the request count over the last window as the
// current bucket plus the previous bucket weighted by how much of it still
// overlaps. Only admitted requests increment the current bucket.
//
// KEYS[1] current bucket, KEYS[2] previous bucket
// ARGV[1] limit, ARGV[2] window in ms, ARGV[3] ms elapsed in the current bucket
var slidingWindow = goredis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local elapsed = tonumber(ARGV[3])
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local prev = tonumber(redis.call('GET', KEYS[2]) or '0')
local used = math.floor(prev * (window - elapsed) / window) + cur
if used >= limit then
  return {0, used}
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], window * 2)
return {1, used + 1}
`)

// RateLimitStore implements ports.RateLimitStore on Redis.
type RateLimitStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	windowMS := window.Milliseconds()
	if windowMS < 1000 {
		windowMS = 1000
	}
	nowMS := s.now().UnixMilli()
	bucket := nowMS / windowMS
	elapsed := nowMS % windowMS

	keys := []string{bucketKey(key, bucket), bucketKey(key, bucket-1)}
	reply, err := slidingWindow.Run(ctx, s.client, keys, limit, windowMS, elapsed).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit %s: %w", key, err)
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("redis rate limit %s: unexpected reply %v", key, reply)
	}

	res := &ports.RateLimitResult{
		Allowed:   reply[0] == 1,
		Limit:     limit,
		Remaining: max(limit-reply[1], 0),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration(windowMS-elapsed) * time.Millisecond
	}
	return res, nil
}

func bucketKey(key string, bucket int64) string {
	return keyPrefix + "ratelimit:" + key + ":" + strconv.FormatInt(bucket, 10)
}
