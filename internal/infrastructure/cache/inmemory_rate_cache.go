package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/vendor-invoice/internal/domain/currency"
)

// rateEntry is a cached rate with its expiration
type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// InMemoryRateCache implements currency.RateCache using an in-memory map.
// Entries are immutable once written; expiry is purely time-based, so no
// invalidation hooks are needed. Suitable for single-instance deployments
// and testing.
type InMemoryRateCache struct {
	mu        sync.RWMutex
	entries   map[string]rateEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryRateCache creates an in-memory rate cache and starts a
// background goroutine that evicts expired entries.
func NewInMemoryRateCache() *InMemoryRateCache {
	c := &InMemoryRateCache{
		entries:  make(map[string]rateEntry),
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get returns the cached rate for the pair key, or false when absent or
// expired
func (c *InMemoryRateCache) Get(_ context.Context, key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return decimal.Decimal{}, false
	}
	return e.rate, true
}

// Put stores a rate under the pair key with the given TTL
func (c *InMemoryRateCache) Put(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = rateEntry{
		rate:      rate,
		expiresAt: time.Now().Add(ttl),
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryRateCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryRateCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryRateCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryRateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryRateCache implements currency.RateCache
var _ currency.RateCache = (*InMemoryRateCache)(nil)
