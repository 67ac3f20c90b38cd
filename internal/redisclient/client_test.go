package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires Redis (set TEST_REDIS_ADDR)")
	}
	c, err := NewClient(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "lock:checkout:u1", lockKey("u1"))
	assert.Equal(t, "idempotency:checkout:k1", orderKey("k1"))
}

func TestCheckoutLock(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	userID := "user-" + uuid.New().String()

	ok, err := c.AcquireCheckoutLock(ctx, userID, "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireCheckoutLock(ctx, userID, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not take a held lock")

	// Releasing with the wrong owner leaves the lock in place.
	require.NoError(t, c.ReleaseCheckoutLock(ctx, userID, "owner-b"))
	ok, err = c.AcquireCheckoutLock(ctx, userID, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseCheckoutLock(ctx, userID, "owner-a"))
	ok, err = c.AcquireCheckoutLock(ctx, userID, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ReleaseCheckoutLock(ctx, userID, "owner-b"))
	require.NoError(t, c.ReleaseCheckoutLock(ctx, userID, "owner-b"), "releasing a free lock is a no-op")
}

func TestRememberOrder(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := uuid.New().String()

	orderID, err := c.OrderFor(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, orderID)

	require.NoError(t, c.RememberOrder(ctx, key, "order-1", time.Minute))

	orderID, err = c.OrderFor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
}
