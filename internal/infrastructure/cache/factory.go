package cache

import (
	"context"
	"fmt"
	"time"

	sharedConfig "msgdeck/internal/shared/config"
	"msgdeck/internal/shared/logger"
)

const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// New builds the configured backend. An unreachable Redis is logged and the service
// keeps running against an in-memory cache, since the cache is never authoritative.
func New(ctx context.Context, cacheCfg sharedConfig.CacheConfig, redisCfg sharedConfig.RedisConfig, log logger.Interface) (Cache, func() error, error) {
	switch cacheCfg.Driver {
	case DriverMemory, "":
		return NewMemoryCache(cacheCfg.KeyPrefix, 5*time.Minute, 10*time.Minute), func() error { return nil }, nil
	case DriverRedis:
		client := NewRedisClient(redisCfg)
		c := NewRedisCache(client, cacheCfg.KeyPrefix)
		if err := c.Ping(ctx); err != nil {
			log.Warnw("redis unreachable, falling back to in-memory cache", "addr", redisCfg.GetAddr(), "error", err)
			_ = client.Close()
			return NewMemoryCache(cacheCfg.KeyPrefix, 5*time.Minute, 10*time.Minute), func() error { return nil }, nil
		}
		log.Infow("redis cache connected", "addr", redisCfg.GetAddr())
		return c, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver: %s", cacheCfg.Driver)
	}
}
