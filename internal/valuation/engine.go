package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/lp-tracker/internal/analyzer"
	"github.com/elys-network/lp-tracker/internal/metrics"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/vault"
)

var ErrInvalidWallet = errors.New("wallet address is invalid")

// errNoPosition marks a vault the user has no open position in. The vault is omitted, not failed.
var errNoPosition = errors.New("no open position")

const DefaultVaultTimeout = 30 * time.Second

// PriceResolver returns USD prices by token symbol.
type PriceResolver interface {
	Price(ctx context.Context, symbol string) (float64, error)
	PriceAt(ctx context.Context, symbol string, unixSeconds int64) (float64, error)
}

// ChainReader is the set of contract views the valuation reads.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GaugeRewards(ctx context.Context, gauge, user string) (types.GaugePosition, error)
	Rate(ctx context.Context, provider string) (sdkmath.Int, error)
	VaultAsset(ctx context.Context, vault string) (types.TokenAmount, error)
	PricePerFullShare(ctx context.Context, vault string, block *uint64) (sdkmath.Int, error)
	SwapFeePercentage(ctx context.Context, pool string) (sdkmath.Int, error)
}

// VaultOracle values raw quantities of an autocompounding vault's underlying asset.
type VaultOracle interface {
	UnderlyingValueUSD(ctx context.Context, vault string, raw sdkmath.Int) (float64, error)
}

// Config holds the dependencies of an Engine.
type Config struct {
	Vaults        []types.VaultConfig
	Gateways      map[types.Protocol]vault.FactsGateway
	Prices        PriceResolver
	Chain         ChainReader
	Oracle        VaultOracle       // required only when a beefy vault is configured
	RateProviders map[string]string // symbol -> rate provider contract
	VaultTimeout  time.Duration
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Engine values every configured vault for a wallet.
type Engine struct {
	vaults        []types.VaultConfig
	gateways      map[types.Protocol]vault.FactsGateway
	prices        PriceResolver
	chain         ChainReader
	oracle        VaultOracle
	rateProviders map[string]string
	vaultTimeout  time.Duration
	now           func() time.Time
	logger        zerolog.Logger

	runCount int
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		vaults:        cfg.Vaults,
		gateways:      cfg.Gateways,
		prices:        cfg.Prices,
		chain:         cfg.Chain,
		oracle:        cfg.Oracle,
		rateProviders: make(map[string]string, len(cfg.RateProviders)),
		vaultTimeout:  cfg.VaultTimeout,
		now:           cfg.Now,
		logger:        cfg.Logger.With().Str("component", "valuation_engine").Logger(),
	}
	for symbol, provider := range cfg.RateProviders {
		e.rateProviders[types.NormalizeSymbol(symbol)] = provider
	}
	if e.vaultTimeout <= 0 {
		e.vaultTimeout = DefaultVaultTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}

	e.logger.Info().Int("vaults", len(e.vaults)).Dur("vaultTimeout", e.vaultTimeout).Msg("Valuation engine created")
	return e, nil
}

func validateEngineConfig(cfg Config) error {
	if cfg.Prices == nil {
		return fmt.Errorf("price resolver cannot be nil")
	}
	if cfg.Chain == nil {
		return fmt.Errorf("chain reader cannot be nil")
	}
	for _, v := range cfg.Vaults {
		if _, ok := cfg.Gateways[v.Protocol]; !ok {
			return fmt.Errorf("no facts gateway for protocol %q of vault %s", v.Protocol, v.Name)
		}
		if v.Protocol == types.ProtocolBeefy && cfg.Oracle == nil {
			return fmt.Errorf("vault %s requires a vault oracle", v.Name)
		}
	}
	return nil
}

// Vaults returns the configured vaults in report order.
func (e *Engine) Vaults() []types.VaultConfig {
	return e.vaults
}

// Run values every configured vault for wallet concurrently. Vaults without a deposit, or whose valuation
// fails, are left out. The result keeps configuration order and is empty, never an error, when every vault
// fails. Only an invalid wallet is an error.
func (e *Engine) Run(ctx context.Context, wallet string) ([]types.PortfolioItem, error) {
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}
	user := common.HexToAddress(wallet).Hex()
	start := time.Now()

	runLogger := e.logger.With().Str("run_id", uuid.New().String()).Str("wallet", user).Logger()
	runLogger.Info().Msg("--- Starting portfolio valuation ---")

	currentBlock, err := e.chain.BlockNumber(ctx)
	if err != nil {
		runLogger.Warn().Err(err).Msg("Failed to read current block, elapsed blocks will be reported as 0")
	}

	results := make([]*types.PortfolioItem, len(e.vaults))
	var eg errgroup.Group
	for i, v := range e.vaults {
		i, v := i, v
		eg.Go(func() error {
			results[i] = e.runVault(ctx, runLogger, user, v, currentBlock)
			return nil
		})
	}
	eg.Wait()

	items := make([]types.PortfolioItem, 0, len(results))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}

	metrics.ReportRuns.Inc()
	runLogger.Info().
		Int("valued", len(items)).
		Int("configured", len(e.vaults)).
		Dur("duration", time.Since(start)).
		Msg("--- Portfolio valuation completed ---")
	return items, nil
}

// runVault contains every failure of a single vault branch.
func (e *Engine) runVault(ctx context.Context, log zerolog.Logger, user string, v types.VaultConfig, currentBlock uint64) *types.PortfolioItem {
	start := time.Now()
	vaultLogger := log.With().Str("vault", v.Name).Logger()
	defer func() {
		metrics.VaultValuationDuration.WithLabelValues(v.Name).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, e.vaultTimeout)
	defer cancel()

	item, mode, err := e.valueVault(ctx, vaultLogger, user, v, currentBlock)
	switch {
	case err != nil:
		metrics.VaultValuations.WithLabelValues(v.Name, mode.String(), metrics.OutcomeError).Inc()
		vaultLogger.Error().Err(err).Str("mode", mode.String()).Msg("Vault valuation failed, omitting from report")
		return nil
	case item == nil:
		metrics.VaultValuations.WithLabelValues(v.Name, mode.String(), metrics.OutcomeOmitted).Inc()
		return nil
	default:
		metrics.VaultValuations.WithLabelValues(v.Name, mode.String(), metrics.OutcomeOK).Inc()
		vaultLogger.Info().
			Str("mode", mode.String()).
			Float64("depositValue", item.DepositValue).
			Float64("rewardValue", item.RewardValue).
			Float64("apr", item.APR).
			Msg("Vault valued")
		return item
	}
}

func (e *Engine) valueVault(ctx context.Context, log zerolog.Logger, user string, v types.VaultConfig, currentBlock uint64) (*types.PortfolioItem, types.ValuationMode, error) {
	gateway := e.gateways[v.Protocol]
	facts, err := gateway.FetchFacts(ctx, user, v)
	if errors.Is(err, vault.ErrNoDataSource) {
		log.Warn().Err(err).Msg("No position data available, omitting vault")
		return nil, types.ModeUnknown, nil
	}
	if err != nil {
		return nil, types.ModeUnknown, fmt.Errorf("failed to fetch position facts: %w", err)
	}

	deposit, ok := facts.FirstDeposit()
	if !ok {
		log.Debug().Msg("No deposit history, omitting vault")
		return nil, types.ModeUnknown, nil
	}

	mode := analyzer.SelectMode(v, facts)
	item := newItem(v, mode, deposit, currentBlock, e.now())
	log = log.With().Str("mode", mode.String()).Logger()

	switch mode {
	case types.ModeUnstakedPool:
		err = e.valueUnstakedPool(ctx, log, item, facts.CurrentShare, deposit)
	case types.ModeStakedGauge:
		err = e.valueStakedGauge(ctx, log, item, user, v, deposit)
	case types.ModeYieldRateAppreciation:
		err = e.valueYieldRate(ctx, item, deposit)
	case types.ModeVaultShareAccrual:
		err = e.valueVaultShare(ctx, log, item, v, facts.CurrentShare, deposit)
	default:
		err = fmt.Errorf("unsupported protocol %q", v.Protocol)
	}
	if errors.Is(err, errNoPosition) {
		log.Debug().Msg("No open position, omitting vault")
		return nil, mode, nil
	}
	if err != nil {
		return nil, mode, err
	}
	return item, mode, nil
}

// RunLoop values every wallet immediately and then once per interval until ctx is cancelled.
// sink receives each wallet's items.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration, wallets []string, sink func(wallet string, items []types.PortfolioItem)) {
	e.logger.Info().
		Dur("interval", interval).
		Int("wallets", len(wallets)).
		Msg("Starting valuation loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.runCycle(ctx, wallets, sink)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Valuation loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.runCycle(ctx, wallets, sink)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, wallets []string, sink func(string, []types.PortfolioItem)) {
	e.runCount++
	e.logger.Info().Int("cycle", e.runCount).Msg("Initiating valuation cycle")
	for _, wallet := range wallets {
		if ctx.Err() != nil {
			return
		}
		items, err := e.Run(ctx, wallet)
		if err != nil {
			e.logger.Error().Err(err).Str("wallet", wallet).Msg("Skipping wallet")
			continue
		}
		sink(wallet, items)
	}
	e.logger.Info().Int("cycle", e.runCount).Msg("Valuation cycle completed")
}
