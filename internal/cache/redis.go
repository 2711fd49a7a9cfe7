// Package cache stores finished results in Redis, keyed by the MD5 of the
// image bytes and the fingerprint of the source that produced them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/result"
)

// RedisCache is a result cache backed by a Redis server.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// NewRedisCache creates a cache for cfg. No connection is made until the
// first command; call Ping to verify the server is reachable.
func NewRedisCache(cfg config.CacheConfig, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.Prefix,
		log:    log,
	}
}

// Key builds the cache key for an image digest and source fingerprint.
func Key(md5, fingerprint string) string {
	return md5 + ":" + fingerprint
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached result for key, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*result.Result, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var r result.Result
	if err := json.Unmarshal(data, &r); err != nil {
		c.log.Error("failed to unmarshal cached result",
			zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &r, nil
}

// Set stores r under key. Only success results are cached.
func (c *RedisCache) Set(ctx context.Context, key string, r *result.Result) error {
	if r == nil || !r.Success {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
