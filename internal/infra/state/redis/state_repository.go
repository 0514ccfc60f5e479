package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStateRepository is the Redis implementation of repository.StateRepository
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository. Keys are namespaced by keyPrefix.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cb:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStateRepository) rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", r.keyPrefix, key)
}

// CheckRateLimit increments the counter for key and reports whether it is over limit.
// The window starts with the first hit; later hits do not extend it. A counter left
// without a TTL (its EXPIRE never landed) gets one on the next hit.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.rateLimitKey(key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		ttl = pipe.TTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis: failed to increment rate limit counter %s: %w", fullKey, err)
	}

	if needsWindow(ttl.Val()) {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return false, fmt.Errorf("redis: failed to set rate limit window on %s: %w", fullKey, err)
		}
	}
	return incr.Val() > int64(limit), nil
}

// needsWindow reports whether a counter's TTL, as go-redis returns it, means no expiry is
// set. Redis answers -1 for a key without TTL and -2 for a missing key.
func needsWindow(ttl time.Duration) bool {
	return ttl < 0
}
