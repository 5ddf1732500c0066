package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores current prices keyed by price-feed id.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, price float64)
}

// MemoryCache is an in-process cache with an optional TTL. Safe for concurrent use.
type MemoryCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// memoryCacheCapacity is the number of prices held before ristretto evicts. Each entry costs 1.
const memoryCacheCapacity = 1 << 16

// NewMemoryCache creates a cache whose entries expire after ttl. A zero ttl never expires entries.
func NewMemoryCache(ttl time.Duration) (*MemoryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10 * memoryCacheCapacity,
		MaxCost:            memoryCacheCapacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}
	return &MemoryCache{cache: cache, ttl: ttl}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return 0, false
	}
	price, ok := value.(float64)
	return price, ok
}

// Set stores the price and waits until it is visible to Get.
func (c *MemoryCache) Set(_ context.Context, key string, price float64) {
	c.cache.SetWithTTL(key, price, 1, c.ttl)
	c.cache.Wait()
}

func (c *MemoryCache) Close() {
	c.cache.Close()
}

// RedisCache shares current prices between processes. Failures degrade to cache misses.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "lp-tracker:price:",
		logger: log.With().Str("cache", "redis").Logger(),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (float64, bool) {
	price, err := c.client.Get(ctx, c.prefix+key).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Redis price lookup failed")
		}
		return 0, false
	}
	return price, true
}

func (c *RedisCache) Set(ctx context.Context, key string, price float64) {
	if err := c.client.Set(ctx, c.prefix+key, price, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis price store failed")
	}
}

// TieredCache reads through its tiers in order and back-fills the faster tiers on a hit.
type TieredCache []Cache

func (t TieredCache) Get(ctx context.Context, key string) (float64, bool) {
	for i, tier := range t {
		if price, ok := tier.Get(ctx, key); ok {
			for j := 0; j < i; j++ {
				t[j].Set(ctx, key, price)
			}
			return price, true
		}
	}
	return 0, false
}

func (t TieredCache) Set(ctx context.Context, key string, price float64) {
	for _, tier := range t {
		tier.Set(ctx, key, price)
	}
}
