package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"msgdeck/internal/shared/logger"
)

// Recorder receives hit/miss notifications. *metrics.Metrics satisfies it.
type Recorder interface {
	CacheResult(keyspace string, hit bool)
}

// BestEffort wraps a Cache so that failures never reach callers: a failed read is a
// miss, and failed writes or deletes are logged and dropped. Values are JSON-encoded.
type BestEffort struct {
	cache    Cache
	logger   logger.Interface
	recorder Recorder
}

func NewBestEffort(c Cache, logger logger.Interface, recorder Recorder) *BestEffort {
	return &BestEffort{
		cache:    c,
		logger:   logger,
		recorder: recorder,
	}
}

// GetJSON decodes the cached value into dst and reports whether it was found.
func (b *BestEffort) GetJSON(ctx context.Context, key string, dst any) bool {
	if b == nil || b.cache == nil {
		return false
	}
	hit := b.getJSON(ctx, key, dst)
	if b.recorder != nil {
		b.recorder.CacheResult(keyspace(key), hit)
	}
	return hit
}

func (b *BestEffort) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := b.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			b.logger.Warnw("cache read failed, treating as miss", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		b.logger.Warnw("cache entry undecodable, dropping", "key", key, "error", err)
		b.Delete(ctx, key)
		return false
	}
	return true
}

func (b *BestEffort) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if b == nil || b.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		b.logger.Warnw("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := b.cache.Set(ctx, key, data, ttl); err != nil {
		b.logger.Warnw("cache write failed", "key", key, "error", err)
	}
}

func (b *BestEffort) Delete(ctx context.Context, keys ...string) {
	if b == nil || b.cache == nil {
		return
	}
	if err := b.cache.Delete(ctx, keys...); err != nil {
		b.logger.Warnw("cache delete failed", "keys", keys, "error", err)
	}
}

func (b *BestEffort) DeletePattern(ctx context.Context, pattern string) {
	if b == nil || b.cache == nil {
		return
	}
	if err := b.cache.DeletePattern(ctx, pattern); err != nil {
		b.logger.Warnw("cache pattern delete failed", "pattern", pattern, "error", err)
	}
}
