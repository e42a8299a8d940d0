// Package cache stores JSON values in Redis with a fixed TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSON wraps Redis get/set of JSON payloads. A nil JSON, or one without a
// client or with a non-positive TTL, never hits and never stores.
type JSON struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a JSON cache.
func New(client *redis.Client, ttl time.Duration) *JSON {
	return &JSON{client: client, ttl: ttl}
}

func (c *JSON) disabled() bool {
	return c == nil || c.client == nil || c.ttl <= 0
}

// Get unmarshals the cached value into dst and reports whether it existed.
func (c *JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.disabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key.
func (c *JSON) Set(ctx context.Context, key string, v any) error {
	if c.disabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// ProductKey is the cache key of a catalog product.
func ProductKey(id int64) string {
	return "catalog:product:" + strconv.FormatInt(id, 10)
}

// SizeKey is the cache key of a product size price.
func SizeKey(priceID int64) string {
	return "catalog:size:" + strconv.FormatInt(priceID, 10)
}
