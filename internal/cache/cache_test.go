package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Cache{nil, New(nil)} {
		assert.False(t, c.Enabled())

		require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
		var dest map[string]int
		assert.ErrorIs(t, c.GetJSON(ctx, "k", &dest), ErrMiss)

		ok, err := c.Acquire(ctx, CheckoutLockKey(1), CheckoutLockTTL)
		require.NoError(t, err)
		assert.True(t, ok)
		c.Release(ctx, CheckoutLockKey(1))

		n, err := c.IncrementRateLimit(ctx, "rl", time.Minute)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Nil(t, c.Subscribe(ctx, OrdersChannel(1)))
		assert.NoError(t, c.Publish(ctx, OrdersChannel(1), "x"))
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart:3", CartKey(3))
	assert.Equal(t, "orders:3", OrdersChannel(3))
	assert.Equal(t, "checkout_lock:3", CheckoutLockKey(3))
}
