package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// InMemoryCreationGuard implements CreationGuard with a mutex-protected map.
// Suitable for single-instance deployments and testing.
type InMemoryCreationGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewInMemoryCreationGuard creates an in-memory creation guard
func NewInMemoryCreationGuard() *InMemoryCreationGuard {
	return &InMemoryCreationGuard{entries: make(map[string]time.Time)}
}

// Acquire marks a creation attempt in flight for the session key
func (g *InMemoryCreationGuard) Acquire(_ context.Context, sessionKey string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiresAt, exists := g.entries[sessionKey]; exists && time.Now().Before(expiresAt) {
		return false, nil
	}
	g.entries[sessionKey] = time.Now().Add(ttl)
	return true, nil
}

// Release clears the in-flight flag for the session key
func (g *InMemoryCreationGuard) Release(_ context.Context, sessionKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, sessionKey)
	return nil
}

// Ensure InMemoryCreationGuard implements shared.CreationGuard
var _ shared.CreationGuard = (*InMemoryCreationGuard)(nil)

// RedisCreationGuard implements CreationGuard using SETNX so the guard holds
// across instances.
type RedisCreationGuard struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCreationGuard creates a guard with an existing Redis client
func NewRedisCreationGuard(client *redis.Client) *RedisCreationGuard {
	return &RedisCreationGuard{
		client:    client,
		keyPrefix: "invoice:creating:",
	}
}

// Acquire marks a creation attempt in flight using an atomic SETNX with TTL
func (g *RedisCreationGuard) Acquire(ctx context.Context, sessionKey string, ttl time.Duration) (bool, error) {
	acquired, err := g.client.SetNX(ctx, g.keyPrefix+sessionKey, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire creation guard: %w", err)
	}
	return acquired, nil
}

// Release clears the in-flight flag for the session key
func (g *RedisCreationGuard) Release(ctx context.Context, sessionKey string) error {
	if err := g.client.Del(ctx, g.keyPrefix+sessionKey).Err(); err != nil {
		return fmt.Errorf("failed to release creation guard: %w", err)
	}
	return nil
}

// Ensure RedisCreationGuard implements shared.CreationGuard
var _ shared.CreationGuard = (*RedisCreationGuard)(nil)
