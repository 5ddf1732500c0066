package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lp-tracker/internal/config"
)

func TestRunRequiresCredentials(t *testing.T) {
	user, name := config.DBUser, config.DBName
	t.Cleanup(func() { config.DBUser, config.DBName = user, name })

	config.DBUser, config.DBName = "", ""
	assert.ErrorContains(t, run(), "DB_USER")

	config.DBUser = "tracker"
	assert.ErrorContains(t, run(), "DB_NAME")
}

func TestHistoricalPricesOrdered(t *testing.T) {
	prices := historicalPrices(map[string]map[string]float64{
		"rings-scbtc":        {"22-05-2025": 109353.8, "21-05-2025": 107000},
		"lombard-staked-btc": {"22-05-2025": 109806.5},
	})
	require.Len(t, prices, 3)
	assert.Equal(t, "lombard-staked-btc", prices[0].FeedID)
	assert.Equal(t, "21-05-2025", prices[1].Date)
	assert.Equal(t, "22-05-2025", prices[2].Date)
	for _, p := range prices {
		assert.Equal(t, "static", p.Source)
	}
}
