package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/lp-tracker/internal/chain"
	"github.com/elys-network/lp-tracker/internal/config"
	"github.com/elys-network/lp-tracker/internal/datafetcher"
	"github.com/elys-network/lp-tracker/internal/logger"
	"github.com/elys-network/lp-tracker/internal/pricing"
	"github.com/elys-network/lp-tracker/internal/state"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/valuation"
	"github.com/elys-network/lp-tracker/internal/vault"
)

type app struct {
	engine  *valuation.Engine
	vaults  []types.VaultConfig
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildResolver wires the price resolver: an in-memory cache, optionally backed by Redis, and the
// static historical table, optionally preceded by the Postgres price store.
func buildResolver(ctx context.Context) (*pricing.Resolver, func(), error) {
	componentLogger := logger.GetForComponent("pricing")
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	memCache, err := pricing.NewMemoryCache(config.PriceCacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create price cache: %w", err)
	}
	closers = append(closers, memCache.Close)
	var cache pricing.Cache = memCache

	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", config.RedisAddr).Msg("Redis unreachable, using in-memory price cache only")
			client.Close()
		} else {
			closers = append(closers, func() { client.Close() })
			cache = pricing.TieredCache{memCache, pricing.NewRedisCache(client, config.PriceCacheTTL, componentLogger)}
			log.Info().Str("addr", config.RedisAddr).Msg("Shared Redis price cache enabled")
		}
	}

	historical := pricing.HistoricalTables{pricing.StaticHistoricalTable(config.CoinGeckoHistoricalRates)}
	if config.DBName != "" {
		store, err := openPriceStore()
		if err != nil {
			log.Warn().Err(err).Msg("Historical price store unavailable, using the static table only")
		} else {
			closers = append(closers, state.CloseDB)
			historical = pricing.HistoricalTables{store, historical[0]}
		}
	}

	coinGecko := datafetcher.NewCoinGeckoClient(config.CoinGeckoAPI, config.CoinGeckoAPIKey, config.HTTPTimeout, logger.GetForComponent("coingecko"))
	resolver, err := pricing.NewResolver(pricing.Options{
		FeedIDs:     config.CoinGeckoIDs,
		StaticRates: config.CoinGeckoRates,
		Historical:  historical,
		Cache:       cache,
		Source:      coinGecko,
		Location:    config.PriceDateLocation,
		Logger:      componentLogger,
	})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return resolver, closeAll, nil
}

func openPriceStore() (*state.PriceStore, error) {
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		return nil, err
	}
	if err := state.EnsureSchema(); err != nil {
		state.CloseDB()
		return nil, err
	}
	return state.NewPriceStore(state.DB)
}

// buildApp wires every dependency of the valuation engine.
func buildApp(ctx context.Context) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	vaults, err := config.LoadVaults(config.VaultsFile, config.DefaultRewardPriority)
	if err != nil {
		return nil, err
	}

	resolver, closeResolver, err := buildResolver(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeResolver)

	reader, closeChain, err := chain.Dial(ctx, config.NodeRPC, logger.GetForComponent("chain"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeChain)

	subgraphLogger := logger.GetForComponent("subgraph")
	balancer := datafetcher.NewBalancerClient(
		datafetcher.NewSubgraphClient(config.BeetsV2Subgraph, config.HTTPTimeout, subgraphLogger),
		datafetcher.NewSubgraphClient(config.BeetsV3Subgraph, config.HTTPTimeout, subgraphLogger),
	)
	gateways := map[types.Protocol]vault.FactsGateway{
		types.ProtocolBeets: vault.NewBeetsGateway(balancer, logger.GetForComponent("beets_gateway")),
	}

	var oracle valuation.VaultOracle
	if config.BeefySubgraph != "" {
		beefy := datafetcher.NewBeefyClient(
			datafetcher.NewSubgraphClient(config.BeefySubgraph, config.HTTPTimeout, subgraphLogger),
			config.BeefyAPI, config.HTTPTimeout, logger.GetForComponent("beefy"),
		)
		gateways[types.ProtocolBeefy] = vault.NewBeefyGateway(beefy, reader, logger.GetForComponent("beefy_gateway"))
		oracle = beefy
	} else {
		vaults = withoutProtocol(vaults, types.ProtocolBeefy)
	}

	engine, err := valuation.NewEngine(valuation.Config{
		Vaults:        vaults,
		Gateways:      gateways,
		Prices:        resolver,
		Chain:         reader,
		Oracle:        oracle,
		RateProviders: config.RateProviders,
		VaultTimeout:  config.VaultTimeout,
		Logger:        logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	a.engine = engine
	a.vaults = vaults
	ok = true
	return a, nil
}

func withoutProtocol(vaults []types.VaultConfig, protocol types.Protocol) []types.VaultConfig {
	kept := make([]types.VaultConfig, 0, len(vaults))
	for _, v := range vaults {
		if v.Protocol == protocol {
			log.Warn().Str("vault", v.Name).Msg("BEEFY_SUBGRAPH_URL not set, skipping vault")
			continue
		}
		kept = append(kept, v)
	}
	return kept
}
