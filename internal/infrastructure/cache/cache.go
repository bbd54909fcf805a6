// Package cache provides the key/value cache used in front of the billing repositories.
// Two backends implement Cache: Redis for shared deployments and an in-process store
// for single-node and test setups.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store. Keys are given without the configured
// namespace prefix; implementations add it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern such as "plan*".
	DeletePattern(ctx context.Context, pattern string) error
}
