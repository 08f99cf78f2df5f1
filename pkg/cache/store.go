// Package cache provides the key/value and sorted-set store used for rate
// limiting and short-lived caching. Redis is the production backend; an
// in-process store is available for single-instance development.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Store is the minimal storage surface the application needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Keys returns keys matching a glob pattern (Redis MATCH syntax).
	Keys(ctx context.Context, pattern string) ([]string, error)
	// SlidingWindow atomically drops members older than windowStart, counts
	// what remains, records member at now and refreshes the key TTL.
	// It returns the count observed before member was added.
	SlidingWindow(ctx context.Context, key string, windowStart, now time.Time, member string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// GetJSON loads key and decodes it into dest.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw), ttl)
}
