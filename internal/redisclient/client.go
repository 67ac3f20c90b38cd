// Package redisclient guards checkout across processes: a per-user lock and
// a record of which order each idempotency key produced.
package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping is used by the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(userID string) string {
	return fmt.Sprintf("lock:checkout:%s", userID)
}

func orderKey(idempotencyKey string) string {
	return fmt.Sprintf("idempotency:checkout:%s", idempotencyKey)
}

// AcquireCheckoutLock takes the user's checkout lock. It returns false when
// another process holds it.
func (c *Client) AcquireCheckoutLock(ctx context.Context, userID, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(userID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire checkout lock: %w", err)
	}
	return ok, nil
}

// ReleaseCheckoutLock drops the lock if owner still holds it.
func (c *Client) ReleaseCheckoutLock(ctx context.Context, userID, owner string) error {
	key := lockKey(userID)
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != owner {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("release checkout lock: %w", err)
	}
	return nil
}

// RememberOrder records the order created for an idempotency key.
func (c *Client) RememberOrder(ctx context.Context, idempotencyKey, orderID string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, orderKey(idempotencyKey), orderID, ttl).Err(); err != nil {
		return fmt.Errorf("remember order: %w", err)
	}
	return nil
}

// OrderFor returns the order created for an idempotency key, or "" if none.
func (c *Client) OrderFor(ctx context.Context, idempotencyKey string) (string, error) {
	orderID, err := c.rdb.Get(ctx, orderKey(idempotencyKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup idempotency key: %w", err)
	}
	return orderID, nil
}
