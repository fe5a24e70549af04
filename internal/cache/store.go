package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store represents a shared cache interface used across the application.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON loads key and decodes it into a T. The boolean reports a cache hit.
func GetJSON[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var zero T
	if store == nil {
		return zero, false, nil
	}
	data, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return out, true, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	if store == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data, ttl)
}
