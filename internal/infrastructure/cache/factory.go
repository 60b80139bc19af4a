package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/shared"
	"github.com/erp/vendor-invoice/internal/infrastructure/config"
)

// Factory creates the rate cache and creation guard, preferring Redis and
// falling back to the in-memory implementations when Redis is not configured
// or unreachable.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new cache factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// connect dials Redis and verifies the connection
func (f *Factory) connect() (*redis.Client, error) {
	addr := f.redisConfig.RedisAddr()
	if addr == "" {
		return nil, fmt.Errorf("redis is not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CreateRateCache creates the rate cache, Redis-backed when possible
func (f *Factory) CreateRateCache() (currency.RateCache, error) {
	client, err := f.connect()
	if err == nil {
		f.logger.Info("using Redis rate cache")
		return NewRedisRateCacheWithClient(client, f.logger), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for rate cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory rate cache. "+
		"Rates will be re-fetched per instance.",
		zap.Error(err),
	)
	return NewInMemoryRateCache(), nil
}

// CreateCreationGuard creates the duplicate-submission guard, Redis-backed
// when possible
func (f *Factory) CreateCreationGuard() (shared.CreationGuard, error) {
	client, err := f.connect()
	if err == nil {
		f.logger.Info("using Redis creation guard")
		return NewRedisCreationGuard(client), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for creation guard but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory creation guard. "+
		"Duplicate submissions are only blocked per instance.",
		zap.Error(err),
	)
	return NewInMemoryCreationGuard(), nil
}
