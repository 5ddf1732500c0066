package state

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/elys-network/lp-tracker/internal/types"
)

func setupPriceStore(t *testing.T) *PriceStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, ensureSchema(db))
	store, err := NewPriceStore(db)
	require.NoError(t, err)
	return store
}

func TestNewPriceStoreRequiresDB(t *testing.T) {
	_, err := NewPriceStore(nil)
	assert.ErrorIs(t, err, ErrNilDB)
}

func TestPriceStoreUpsertAndLookup(t *testing.T) {
	store := setupPriceStore(t)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "bitcoin", "22-05-2025")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Upsert(ctx, []types.PriceData{
		{FeedID: "bitcoin", Date: "22-05-2025", Price: 109000},
		{FeedID: "sonic-3", Date: "22-05-2025", Price: 0.52, Source: "coingecko"},
	}))

	price, ok, err := store.Lookup(ctx, "bitcoin", "22-05-2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 109000, price, 1e-9)

	require.NoError(t, store.Upsert(ctx, []types.PriceData{{FeedID: "bitcoin", Date: "22-05-2025", Price: 110500}}))
	price, _, err = store.Lookup(ctx, "bitcoin", "22-05-2025")
	require.NoError(t, err)
	assert.InDelta(t, 110500, price, 1e-9)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPriceStoreUpsertIsAtomic(t *testing.T) {
	store := setupPriceStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []types.PriceData{
		{FeedID: "bitcoin", Date: "22-05-2025", Price: 109000},
		{FeedID: "", Date: "22-05-2025", Price: 1},
	})
	require.Error(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
