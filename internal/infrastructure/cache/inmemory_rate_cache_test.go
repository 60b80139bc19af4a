package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateCache(t *testing.T) {
	ctx := context.Background()

	t.Run("get returns stored rate before expiry", func(t *testing.T) {
		c := NewInMemoryRateCache()
		defer c.Close()

		c.Put(ctx, "USD_VND", decimal.NewFromInt(25000), time.Hour)
		rate, ok := c.Get(ctx, "USD_VND")
		require.True(t, ok)
		assert.True(t, rate.Equal(decimal.NewFromInt(25000)))
	})

	t.Run("missing key is a miss", func(t *testing.T) {
		c := NewInMemoryRateCache()
		defer c.Close()

		_, ok := c.Get(ctx, "EUR_SGD")
		assert.False(t, ok)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		c := NewInMemoryRateCache()
		defer c.Close()

		c.Put(ctx, "USD_VND", decimal.NewFromInt(25000), -time.Second)
		_, ok := c.Get(ctx, "USD_VND")
		assert.False(t, ok)
	})

	t.Run("put overwrites an existing entry", func(t *testing.T) {
		c := NewInMemoryRateCache()
		defer c.Close()

		c.Put(ctx, "USD_VND", decimal.NewFromInt(25000), time.Hour)
		c.Put(ctx, "USD_VND", decimal.NewFromInt(26000), time.Hour)
		rate, ok := c.Get(ctx, "USD_VND")
		require.True(t, ok)
		assert.True(t, rate.Equal(decimal.NewFromInt(26000)))
		assert.Equal(t, 1, c.Size())
	})

	t.Run("cleanup removes expired entries", func(t *testing.T) {
		c := NewInMemoryRateCache()
		defer c.Close()

		c.Put(ctx, "a", decimal.NewFromInt(1), -time.Second)
		c.Put(ctx, "b", decimal.NewFromInt(2), time.Hour)
		c.cleanup()
		assert.Equal(t, 1, c.Size())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := NewInMemoryRateCache()
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
	})
}

func TestInMemoryCreationGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire is rejected until release", func(t *testing.T) {
		g := NewInMemoryCreationGuard()

		ok, err := g.Acquire(ctx, "session-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = g.Acquire(ctx, "session-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, g.Release(ctx, "session-1"))

		ok, err = g.Acquire(ctx, "session-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired flag can be re-acquired", func(t *testing.T) {
		g := NewInMemoryCreationGuard()

		ok, _ := g.Acquire(ctx, "session-2", -time.Second)
		assert.True(t, ok)

		ok, _ = g.Acquire(ctx, "session-2", time.Minute)
		assert.True(t, ok)
	})

	t.Run("different sessions do not interfere", func(t *testing.T) {
		g := NewInMemoryCreationGuard()

		ok, _ := g.Acquire(ctx, "session-a", time.Minute)
		assert.True(t, ok)
		ok, _ = g.Acquire(ctx, "session-b", time.Minute)
		assert.True(t, ok)
	})
}
