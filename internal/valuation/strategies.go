package valuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/lp-tracker/internal/analyzer"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/utils"
)

const shareDecimals = 18

func newItem(v types.VaultConfig, mode types.ValuationMode, deposit types.Deposit, currentBlock uint64, now time.Time) *types.PortfolioItem {
	item := &types.PortfolioItem{
		Type:        v.Type,
		Name:        v.Name,
		Address:     v.Address(),
		Link:        v.URL,
		Mode:        mode,
		DepositTime: deposit.Time(),
		TotalDays:   analyzer.DaysBetween(deposit.Time(), now),
	}
	if currentBlock > 0 {
		item.TotalBlocks = int64(currentBlock) - int64(deposit.BlockNumber)
	}
	return item
}

// valueDeposit prices each deposited token on the deposit day. Tokens deposited with a zero amount are
// reported but not priced.
func (e *Engine) valueDeposit(ctx context.Context, item *types.PortfolioItem, deposit types.Deposit) error {
	for _, token := range deposit.Tokens {
		if token.IsZero() {
			item.AddDeposit(types.AssetValue{Asset: token.Symbol})
			continue
		}
		price, err := e.prices.PriceAt(ctx, token.Symbol, deposit.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to price deposit of %s: %w", token.Symbol, err)
		}
		amount := token.Human().InexactFloat64()
		value := amount * price
		item.AddDeposit(types.AssetValue{Asset: token.Symbol, Amount: amount, ValueUSD: value})
		item.DepositValue += value
	}
	return nil
}

// valueUnstakedPool values the user's direct pool share and spreads the gain across the pool tokens.
func (e *Engine) valueUnstakedPool(ctx context.Context, log zerolog.Logger, item *types.PortfolioItem, share *types.PositionShare, deposit types.Deposit) error {
	if err := e.valueDeposit(ctx, item, deposit); err != nil {
		return err
	}

	balances := analyzer.UserPoolBalances(share)
	priced := make([]analyzer.PricedBalance, len(balances))
	for i, b := range balances {
		price, err := e.prices.Price(ctx, b.Symbol)
		if err != nil {
			return fmt.Errorf("failed to price pool token %s: %w", b.Symbol, err)
		}
		priced[i] = analyzer.PricedBalance{Symbol: b.Symbol, Amount: b.Human(), PriceUSD: price}
	}

	attribution := analyzer.AttributePoolGain(priced, item.DepositValue)
	item.CurrentValue = attribution.CurrentValue
	item.RewardValue = attribution.TotalGain
	for _, r := range attribution.Rewards {
		item.AddReward(types.AssetValue{Asset: r.Symbol, Amount: r.Amount, ValueUSD: r.ValueUSD})
	}

	gain := attribution.TotalGain
	if bptValue, ok := analyzer.BPTPositionValue(share); ok {
		gain = bptValue - item.DepositValue
	}
	item.APR = analyzer.CalculateAPR(item.DepositValue, gain, item.TotalDays)

	log.Debug().
		Str("sharePct", analyzer.SharePercentage(share).String()).
		Float64("currentValue", item.CurrentValue).
		Msg("Valued unstaked pool share")

	fee, err := e.chain.SwapFeePercentage(ctx, poolAddress(share))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read swap fee")
		return nil
	}
	item.SwapFee = utils.FormatUnits(fee, shareDecimals).InexactFloat64() * 100
	return nil
}

// poolAddress returns the pool contract. Balancer v2 pool ids start with the pool address.
func poolAddress(share *types.PositionShare) string {
	if share.Pool.Address != "" {
		return share.Pool.Address
	}
	if len(share.Pool.ID) >= 42 && strings.HasPrefix(share.Pool.ID, "0x") {
		return share.Pool.ID[:42]
	}
	return share.Pool.ID
}

// valueStakedGauge values gauge rewards at current prices. Only the prioritized reward counts towards
// the return.
func (e *Engine) valueStakedGauge(ctx context.Context, log zerolog.Logger, item *types.PortfolioItem, user string, v types.VaultConfig, deposit types.Deposit) error {
	if v.GaugeAddress == "" {
		return fmt.Errorf("vault %s has no gauge configured", v.Name)
	}

	var position types.GaugePosition
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return e.valueDeposit(egCtx, item, deposit)
	})
	eg.Go(func() error {
		var err error
		position, err = e.chain.GaugeRewards(egCtx, v.GaugeAddress, user)
		if err != nil {
			return fmt.Errorf("failed to read gauge rewards: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, r := range position.Rewards {
		price, err := e.prices.Price(ctx, r.Symbol)
		if err != nil {
			return fmt.Errorf("failed to price reward %s: %w", r.Symbol, err)
		}
		position.Rewards[i].PriceUSD = price
	}

	attribution := analyzer.AttributeGaugeRewards(position, v.RewardPriority)
	if attribution.Found {
		h := attribution.Headline
		item.AddReward(types.AssetValue{Asset: h.Symbol, Amount: h.Amount, ValueUSD: h.ValueUSD})
		item.RewardValue = h.ValueUSD
		item.TotalEarned = attribution.TotalEarned.InexactFloat64()
	} else {
		log.Warn().Strs("priority", v.RewardPriority).Msg("No prioritized reward token in gauge")
	}
	for _, r := range attribution.Others {
		item.AddReward(types.AssetValue{Asset: r.Symbol, Amount: r.Amount, ValueUSD: r.ValueUSD})
	}

	item.StakedShares = utils.FormatUnits(position.StakedBalance, shareDecimals).InexactFloat64()
	item.APR = analyzer.CalculateAPR(item.DepositValue, item.RewardValue, item.TotalDays)
	return nil
}

// valueYieldRate attributes the appreciation of yield-bearing deposit tokens.
func (e *Engine) valueYieldRate(ctx context.Context, item *types.PortfolioItem, deposit types.Deposit) error {
	if err := e.valueDeposit(ctx, item, deposit); err != nil {
		return err
	}

	inputs := make([]analyzer.YieldInput, len(deposit.Tokens))
	for i, token := range deposit.Tokens {
		inputs[i] = analyzer.YieldInput{Symbol: token.Symbol, InitialAmount: token.Human()}
		if token.IsZero() {
			continue
		}
		provider, ok := e.rateProviders[types.NormalizeSymbol(token.Symbol)]
		if !ok {
			continue
		}

		rate, err := e.chain.Rate(ctx, provider)
		if err != nil {
			return fmt.Errorf("failed to read rate of %s: %w", token.Symbol, err)
		}
		price, err := e.prices.Price(ctx, token.Symbol)
		if err != nil {
			return fmt.Errorf("failed to price %s: %w", token.Symbol, err)
		}
		inputs[i].Rate = &rate
		inputs[i].PriceUSD = price
	}

	rewards, total := analyzer.AttributeRateYield(inputs)
	for _, r := range rewards {
		item.AddReward(types.AssetValue{Asset: r.Symbol, Amount: r.Amount, ValueUSD: r.ValueUSD})
	}
	item.RewardValue = total
	item.CurrentValue = item.DepositValue + total
	if total > 0 {
		item.APR = analyzer.CalculateAPR(item.DepositValue, total, item.TotalDays)
	}
	return nil
}

// valueVaultShare compares the vault's price per full share at the deposit block with the current one.
// USD values come from the vault oracle for both quantities because the underlying may itself be an LP token.
func (e *Engine) valueVaultShare(ctx context.Context, log zerolog.Logger, item *types.PortfolioItem, v types.VaultConfig, share *types.PositionShare, deposit types.Deposit) error {
	if !share.HasBalance() {
		return errNoPosition
	}

	var (
		asset       types.TokenAmount
		currentPPFS sdkmath.Int
		depositPPFS = sdkmath.ZeroInt()
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		asset, err = e.chain.VaultAsset(egCtx, v.PoolID)
		return err
	})
	eg.Go(func() error {
		var err error
		currentPPFS, err = e.chain.PricePerFullShare(egCtx, v.PoolID, nil)
		return err
	})
	eg.Go(func() error {
		block := deposit.BlockNumber
		ppfs, err := e.chain.PricePerFullShare(egCtx, v.PoolID, &block)
		if err != nil {
			log.Warn().Err(err).Uint64("block", block).Msg("Historical price per share unavailable, using 0")
			return nil
		}
		depositPPFS = ppfs
		return nil
	})
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("failed to read vault state: %w", err)
	}

	accrual := analyzer.AttributeVaultAccrual(analyzer.ShareAccrual{
		Shares:      share.Balance,
		DepositPPFS: depositPPFS,
		CurrentPPFS: currentPPFS,
	})

	currentUSD, err := e.oracle.UnderlyingValueUSD(ctx, v.PoolID, accrual.CurrentUnderlying)
	if err != nil {
		return fmt.Errorf("failed to value current underlying: %w", err)
	}
	initialUSD, err := e.oracle.UnderlyingValueUSD(ctx, v.PoolID, accrual.InitialUnderlying)
	if err != nil {
		return fmt.Errorf("failed to value initial underlying: %w", err)
	}
	gainUSD := currentUSD - initialUSD

	item.AddDeposit(types.AssetValue{
		Asset:    asset.Symbol,
		Amount:   utils.FormatUnits(accrual.InitialUnderlying, asset.Decimals).InexactFloat64(),
		ValueUSD: initialUSD,
	})
	item.AddReward(types.AssetValue{
		Asset:    asset.Symbol,
		Amount:   utils.FormatUnits(accrual.GainTokens, asset.Decimals).InexactFloat64(),
		ValueUSD: gainUSD,
	})
	item.DepositValue = initialUSD
	item.RewardValue = gainUSD
	item.CurrentValue = currentUSD
	item.APR = analyzer.CalculateAPR(initialUSD, gainUSD, item.TotalDays)
	item.APY = analyzer.CalculateCompoundedAPY(initialUSD, currentUSD, item.TotalDays)
	return nil
}
