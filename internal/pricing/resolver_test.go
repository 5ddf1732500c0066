package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) CurrentPrice(ctx context.Context, id string) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockSource) CurrentPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	args := m.Called(ctx, ids)
	prices, _ := args.Get(0).(map[string]float64)
	return prices, args.Error(1)
}

func (m *mockSource) HistoricalPrice(ctx context.Context, id, date string) (float64, error) {
	args := m.Called(ctx, id, date)
	return args.Get(0).(float64), args.Error(1)
}

type failingTable struct{}

func (failingTable) Lookup(context.Context, string, string) (float64, bool, error) {
	return 0, false, errors.New("connection refused")
}

// 2025-05-22T10:00:00Z
const may22 = int64(1747908000)

func newTestResolver(t *testing.T, source *mockSource) *Resolver {
	t.Helper()
	resolver, err := NewResolver(Options{
		FeedIDs: map[string]string{
			"beets": "beets",
			"scBTC": "rings-scbtc",
			"ws":    "wrapped-sonic",
			"lbtc":  "lombard-staked-btc",
		},
		StaticRates: map[string]float64{"wrapped-sonic": 0.4952},
		Historical: StaticHistoricalTable{
			"rings-scbtc": {"22-05-2025": 109353.8},
		},
		Source: source,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return resolver
}

func TestPriceUnknownToken(t *testing.T) {
	source := &mockSource{}
	resolver := newTestResolver(t, source)

	_, err := resolver.Price(context.Background(), "doge")
	assert.ErrorIs(t, err, ErrUnknownToken)

	_, err = resolver.PriceAt(context.Background(), "doge", may22)
	assert.ErrorIs(t, err, ErrUnknownToken)
	source.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
}

func TestPriceStaticTableSkipsNetwork(t *testing.T) {
	source := &mockSource{}
	resolver := newTestResolver(t, source)

	price, err := resolver.Price(context.Background(), "WS")
	require.NoError(t, err)
	assert.Equal(t, 0.4952, price)
	source.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)
}

func TestPriceNetworkResultIsCached(t *testing.T) {
	source := &mockSource{}
	source.On("CurrentPrice", mock.Anything, "beets").Return(0.053, nil).Once()
	resolver := newTestResolver(t, source)

	for i := 0; i < 3; i++ {
		price, err := resolver.Price(context.Background(), "BEETS")
		require.NoError(t, err)
		assert.Equal(t, 0.053, price)
	}
	source.AssertNumberOfCalls(t, "CurrentPrice", 1)
}

func TestPriceCacheWinsOverStaticTable(t *testing.T) {
	source := &mockSource{}
	resolver := newTestResolver(t, source)
	resolver.cache.Set(context.Background(), "wrapped-sonic", 0.51)

	price, err := resolver.Price(context.Background(), "ws")
	require.NoError(t, err)
	assert.Equal(t, 0.51, price)
}

func TestPriceNetworkFailure(t *testing.T) {
	source := &mockSource{}
	source.On("CurrentPrice", mock.Anything, "beets").Return(0.0, errors.New("timeout"))
	resolver := newTestResolver(t, source)

	_, err := resolver.Price(context.Background(), "beets")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestPriceAtStaticHistoricalTable(t *testing.T) {
	source := &mockSource{}
	resolver := newTestResolver(t, source)

	price, err := resolver.PriceAt(context.Background(), "scbtc", may22)
	require.NoError(t, err)
	assert.Equal(t, 109353.8, price)
	source.AssertNotCalled(t, "HistoricalPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestPriceAtIsNeverCached(t *testing.T) {
	source := &mockSource{}
	source.On("HistoricalPrice", mock.Anything, "lombard-staked-btc", "22-05-2025").Return(109806.5, nil)
	resolver := newTestResolver(t, source)

	price, err := resolver.PriceAt(context.Background(), "lbtc", may22)
	require.NoError(t, err)
	assert.Equal(t, 109806.5, price)
	source.AssertNumberOfCalls(t, "HistoricalPrice", 1)

	_, err = resolver.PriceAt(context.Background(), "lbtc", may22+3600)
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "HistoricalPrice", 2)

	_, ok := resolver.cache.Get(context.Background(), "lombard-staked-btc")
	assert.False(t, ok, "historical results must not populate the current price cache")
}

func TestPriceAtFallsBackWhenTableFails(t *testing.T) {
	source := &mockSource{}
	source.On("HistoricalPrice", mock.Anything, "beets", "22-05-2025").Return(0.06, nil)
	resolver := newTestResolver(t, source)
	resolver.historical = failingTable{}

	price, err := resolver.PriceAt(context.Background(), "beets", may22)
	require.NoError(t, err)
	assert.Equal(t, 0.06, price)
}

func TestDateKeyUsesConfiguredLocation(t *testing.T) {
	source := &mockSource{}
	resolver := newTestResolver(t, source)

	// 2025-05-22T23:30:00Z
	late := int64(1747956600)
	assert.Equal(t, "22-05-2025", resolver.DateKey(late))

	resolver.location = time.FixedZone("UTC+9", 9*60*60)
	assert.Equal(t, "23-05-2025", resolver.DateKey(late))
}

func TestPrefetch(t *testing.T) {
	source := &mockSource{}
	source.On("CurrentPrices", mock.Anything, []string{"beets", "lombard-staked-btc"}).
		Return(map[string]float64{"beets": 0.05, "lombard-staked-btc": 106000.0}, nil).Once()
	resolver := newTestResolver(t, source)

	require.NoError(t, resolver.Prefetch(context.Background(), []string{"beets", "ws", "LBTC", "BEETS"}))

	price, err := resolver.Price(context.Background(), "lbtc")
	require.NoError(t, err)
	assert.Equal(t, 106000.0, price)
	source.AssertNotCalled(t, "CurrentPrice", mock.Anything, mock.Anything)

	require.NoError(t, resolver.Prefetch(context.Background(), []string{"beets"}))
	source.AssertNumberOfCalls(t, "CurrentPrices", 1)
}

func TestPrefetchUnknownToken(t *testing.T) {
	resolver := newTestResolver(t, &mockSource{})
	assert.ErrorIs(t, resolver.Prefetch(context.Background(), []string{"doge"}), ErrUnknownToken)
}

func TestNewResolverValidation(t *testing.T) {
	_, err := NewResolver(Options{Source: &mockSource{}})
	assert.Error(t, err)

	_, err = NewResolver(Options{FeedIDs: map[string]string{"a": "b"}})
	assert.Error(t, err)
}

func TestHistoricalTablesChain(t *testing.T) {
	primary := StaticHistoricalTable{"bitcoin": {"22-05-2025": 110000}}
	fallback := StaticHistoricalTable{"bitcoin": {"22-05-2025": 1, "21-05-2025": 108000}}
	tables := HistoricalTables{failingTable{}, primary, fallback}

	price, ok, err := tables.Lookup(context.Background(), "bitcoin", "22-05-2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 110000.0, price)

	price, ok, err = tables.Lookup(context.Background(), "bitcoin", "21-05-2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 108000.0, price)

	_, ok, err = tables.Lookup(context.Background(), "bitcoin", "01-01-2020")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestPriceResolvesEachFeedOnce(t *testing.T) {
	const tokens = 40
	feedIDs := make(map[string]string, tokens)
	for i := 0; i < tokens; i++ {
		feedIDs[fmt.Sprintf("tok%d", i)] = fmt.Sprintf("feed-%d", i)
	}
	source := &mockSource{}
	source.On("CurrentPrice", mock.Anything, mock.Anything).Return(1.25, nil)
	resolver, err := NewResolver(Options{FeedIDs: feedIDs, Source: source, Logger: zerolog.Nop()})
	require.NoError(t, err)

	for pass := 0; pass < 2; pass++ {
		for i := 0; i < tokens; i++ {
			price, err := resolver.Price(context.Background(), fmt.Sprintf("TOK%d", i))
			require.NoError(t, err)
			assert.Equal(t, 1.25, price)
		}
	}
	source.AssertNumberOfCalls(t, "CurrentPrice", tokens)
}
