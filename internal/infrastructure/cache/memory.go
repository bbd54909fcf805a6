package cache

import (
	"context"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Cache in process. Values are copied on the way in and out.
type MemoryCache struct {
	store  *gocache.Cache
	prefix string
}

func NewMemoryCache(prefix string, defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		store:  gocache.New(defaultTTL, cleanupInterval),
		prefix: prefix,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, found := c.store.Get(c.prefix + key)
	if !found {
		return nil, ErrCacheMiss
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T for key %s", v, key)
	}
	return append([]byte(nil), data...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(c.prefix+key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.store.Delete(c.prefix + k)
	}
	return nil
}

// DeletePattern uses glob matching, which agrees with Redis MATCH for the
// "*"-style patterns used by callers.
func (c *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	full := c.prefix + pattern
	if _, err := path.Match(full, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
	}
	for key := range c.store.Items() {
		if ok, _ := path.Match(full, key); ok {
			c.store.Delete(key)
		}
	}
	return nil
}
