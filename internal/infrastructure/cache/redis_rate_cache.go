package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/vendor-invoice/internal/domain/currency"
)

// RedisRateCache implements currency.RateCache using Redis so multiple
// instances share one rate cache. Redis failures degrade to cache misses:
// rate resolution must keep working when the cache is down.
type RedisRateCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisRateCache creates a Redis-backed rate cache, verifying the
// connection with a short ping.
func NewRedisRateCache(addr, password string, db int, logger *zap.Logger) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateCache{
		client:    client,
		keyPrefix: "rate:pair:",
		logger:    logger,
	}, nil
}

// NewRedisRateCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisRateCacheWithClient(client *redis.Client, logger *zap.Logger) *RedisRateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateCache{
		client:    client,
		keyPrefix: "rate:pair:",
		logger:    logger,
	}
}

// Get returns the cached rate for the pair key, treating any Redis error or
// unparsable payload as a miss
func (c *RedisRateCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
		}
		return decimal.Decimal{}, false
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		c.logger.Warn("rate cache entry corrupt", zap.String("key", key), zap.Error(err))
		return decimal.Decimal{}, false
	}
	return rate, true
}

// Put stores a rate under the pair key with the given TTL. Write failures
// are logged and swallowed; the next read is simply a miss.
func (c *RedisRateCache) Put(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) {
	if err := c.client.Set(ctx, c.keyPrefix+key, rate.String(), ttl).Err(); err != nil {
		c.logger.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close closes the Redis client
func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

// Ensure RedisRateCache implements currency.RateCache
var _ currency.RateCache = (*RedisRateCache)(nil)
