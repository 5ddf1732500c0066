package pricing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newMapCache() *mapCache { return &mapCache{prices: map[string]float64{}} }

func (m *mapCache) Get(_ context.Context, key string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[key]
	return p, ok
}

func (m *mapCache) Set(_ context.Context, key string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[key] = price
}

func TestMemoryCacheSetGet(t *testing.T) {
	cache, err := NewMemoryCache(0)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	_, ok := cache.Get(ctx, "beets")
	assert.False(t, ok)

	cache.Set(ctx, "beets", 0.05)
	price, ok := cache.Get(ctx, "beets")
	require.True(t, ok)
	assert.Equal(t, 0.05, price)
}

func TestMemoryCacheTTL(t *testing.T) {
	cache, err := NewMemoryCache(50 * time.Millisecond)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	cache.Set(ctx, "beets", 0.05)
	_, ok := cache.Get(ctx, "beets")
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)
	_, ok = cache.Get(ctx, "beets")
	assert.False(t, ok)
}

func TestMemoryCacheKeepsEveryFeed(t *testing.T) {
	cache, err := NewMemoryCache(0)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	const feeds = 64
	for i := 0; i < feeds; i++ {
		cache.Set(ctx, fmt.Sprintf("feed-%d", i), float64(i)+0.5)
	}
	for i := 0; i < feeds; i++ {
		price, ok := cache.Get(ctx, fmt.Sprintf("feed-%d", i))
		require.True(t, ok, "feed-%d was evicted", i)
		assert.Equal(t, float64(i)+0.5, price)
	}
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache, err := NewMemoryCache(0)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Set(ctx, "beets", 0.05)
			cache.Get(ctx, "beets")
		}()
	}
	wg.Wait()

	price, ok := cache.Get(ctx, "beets")
	require.True(t, ok)
	assert.Equal(t, 0.05, price)
}

func TestTieredCacheBackfills(t *testing.T) {
	fast, slow := newMapCache(), newMapCache()
	tiered := TieredCache{fast, slow}
	ctx := context.Background()

	slow.Set(ctx, "beets", 0.05)
	price, ok := tiered.Get(ctx, "beets")
	require.True(t, ok)
	assert.Equal(t, 0.05, price)

	price, ok = fast.Get(ctx, "beets")
	require.True(t, ok, "hit in a slower tier is copied to the faster one")
	assert.Equal(t, 0.05, price)

	tiered.Set(ctx, "ws", 0.49)
	_, ok = slow.Get(ctx, "ws")
	assert.True(t, ok)

	_, ok = tiered.Get(ctx, "missing")
	assert.False(t, ok)
}
