// Package cache provides the evidence cache: a TTL key-value store shared by the
// GitHub client, the static analyzer and the skill verifier.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the storage contract. A miss is (nil, false, nil); an entry read
// after its expiry is a miss. A ttl of zero or less stores without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON reads and decodes a cached value
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var out T
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return out, true, nil
}

// SetJSON encodes and stores a value
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cached %q: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache read and write failures degrade to computing; fn errors are returned and nothing is stored.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	_ = SetJSON(ctx, c, key, v, ttl)
	return v, nil
}

// Nop never stores anything
type Nop struct{}

// Get always misses
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
