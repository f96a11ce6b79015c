// Package cache holds the quote and history caches that sit in front of the
// market data provider.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// BytesCache stores raw bytes with TTL. GetBytes returns ErrCacheMiss when
// the key is absent or expired.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LookupRecorder observes hits and misses per tier.
type LookupRecorder interface {
	RecordCacheLookup(tier string, hit bool)
}

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, c BytesCache, key string) (T, error) {
	var v T
	b, err := c.GetBytes(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c BytesCache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.SetBytes(ctx, key, b, ttl)
}
