package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "premiumgate:ratelimit:"

// RedisConfig holds RedisLimiter settings
type RedisConfig struct {
	Config

	// KeyPrefix is prepended to all Redis keys (default: "premiumgate:ratelimit:")
	KeyPrefix string
}

// RedisLimiter counts requests with INCR on a key per window
type RedisLimiter struct {
	client    redis.UniversalClient
	limit     int64
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed limiter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func NewRedisLimiter(client redis.UniversalClient, config RedisConfig) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	base, err := config.Config.withDefaults()
	if err != nil {
		return nil, err
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	return &RedisLimiter{
		client:    client,
		limit:     int64(base.Limit),
		window:    base.Window,
		keyPrefix: config.KeyPrefix,
		now:       time.Now,
	}, nil
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := l.windowKey(key)

	count, err := l.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, windowKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= l.limit, nil
}

// windowKey names the counter for the window containing now
func (l *RedisLimiter) windowKey(key string) string {
	windowStart := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", l.keyPrefix, key, windowStart)
}

// Ping checks the Redis connection
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client connection
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
