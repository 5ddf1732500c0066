package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lp-tracker/internal/config"
	"github.com/elys-network/lp-tracker/internal/logger"
	"github.com/elys-network/lp-tracker/internal/state"
	"github.com/elys-network/lp-tracker/internal/types"
)

// Seeds the historical_token_prices table with the built-in historical rate table.
func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Initialize(config.LogLevel, config.LogFile)
	log.Info().Msg("Starting historical price seed script...")

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Historical price seed failed")
	}
}

// run owns the database connection so it is closed on every return path.
func run() error {
	if config.DBUser == "" {
		return errors.New("DB_USER environment variable not set")
	}
	if config.DBName == "" {
		return errors.New("DB_NAME environment variable not set")
	}

	dbCfg := state.DBConfig{
		Host:     config.DBHost,
		Port:     config.DBPort,
		User:     config.DBUser,
		Password: config.DBPassword,
		DBName:   config.DBName,
		SSLMode:  config.DBSSLMode,
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	if err := state.InitDB(dbCfg); err != nil {
		return fmt.Errorf("failed to initialize database connection: %w", err)
	}
	defer state.CloseDB()

	if err := state.EnsureSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	store, err := state.NewPriceStore(state.DB)
	if err != nil {
		return fmt.Errorf("failed to create price store: %w", err)
	}

	prices := historicalPrices(config.CoinGeckoHistoricalRates)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Upsert(ctx, prices); err != nil {
		return fmt.Errorf("failed to seed historical prices: %w", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stored prices: %w", err)
	}
	log.Info().Int("seeded", len(prices)).Int("stored", count).Msg("Historical prices seeded successfully")
	return nil
}

// historicalPrices flattens a feed id -> date -> price table into rows ordered by feed and date.
func historicalPrices(table map[string]map[string]float64) []types.PriceData {
	var prices []types.PriceData
	for feedID, byDate := range table {
		for date, price := range byDate {
			prices = append(prices, types.PriceData{FeedID: feedID, Date: date, Price: price, Source: "static"})
		}
	}
	sort.Slice(prices, func(i, j int) bool {
		if prices[i].FeedID != prices[j].FeedID {
			return prices[i].FeedID < prices[j].FeedID
		}
		return prices[i].Date < prices[j].Date
	})
	return prices
}
