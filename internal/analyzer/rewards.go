package analyzer

import (
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/utils"
)

// bptDecimals is the precision of pool shares.
const bptDecimals = 18

// PricedBalance is a token quantity with its current USD price.
type PricedBalance struct {
	Symbol   string
	Amount   decimal.Decimal
	PriceUSD float64
}

// ValueUSD returns the USD value of the balance.
func (b PricedBalance) ValueUSD() float64 {
	return b.Amount.InexactFloat64() * b.PriceUSD
}

// PoolAttribution is the outcome of splitting a pool-level gain across the pool tokens.
type PoolAttribution struct {
	CurrentValue float64
	TotalGain    float64
	Rewards      []types.RewardShare
}

// UserPoolBalances returns the user's claim on each pool token, computed as
// poolBalance * userShares / totalShares on raw quantities.
func UserPoolBalances(share *types.PositionShare) []types.TokenAmount {
	if share == nil {
		return nil
	}
	out := make([]types.TokenAmount, len(share.Pool.Tokens))
	for i, token := range share.Pool.Tokens {
		out[i] = token
		out[i].Raw = utils.MulDiv(token.Raw, share.Balance, share.Pool.TotalShares)
	}
	return out
}

// SharePercentage is userShares / totalShares. A pool with no shares yields zero.
func SharePercentage(share *types.PositionShare) decimal.Decimal {
	if share == nil || share.Pool.TotalShares.IsNil() || share.Pool.TotalShares.IsZero() {
		return decimal.Zero
	}
	return utils.FormatUnits(share.Balance, bptDecimals).
		Div(utils.FormatUnits(share.Pool.TotalShares, bptDecimals))
}

// BPTPositionValue values the user's pool shares at totalLiquidity / totalShares.
// The second result is false when the pool snapshot carries no USD liquidity.
func BPTPositionValue(share *types.PositionShare) (float64, bool) {
	if share == nil || share.Pool.TotalLiquidityUSD == nil {
		return 0, false
	}
	totalShares := utils.FormatUnits(share.Pool.TotalShares, bptDecimals).InexactFloat64()
	bptPrice := utils.SafeDiv(*share.Pool.TotalLiquidityUSD, totalShares)
	return utils.FormatUnits(share.Balance, bptDecimals).InexactFloat64() * bptPrice, true
}

// AttributePoolGain splits currentValue - totalDepositValue across the balances in proportion to each
// token's share of the current value. The last token takes the remainder so the per-token gains add up
// to the total exactly. A zero current value attributes nothing.
func AttributePoolGain(balances []PricedBalance, totalDepositValue float64) PoolAttribution {
	var result PoolAttribution
	values := make([]float64, len(balances))
	for i, b := range balances {
		values[i] = b.ValueUSD()
		result.CurrentValue += values[i]
	}
	result.TotalGain = result.CurrentValue - totalDepositValue

	result.Rewards = make([]types.RewardShare, len(balances))
	if result.CurrentValue == 0 {
		for i, b := range balances {
			result.Rewards[i] = types.RewardShare{Symbol: b.Symbol}
		}
		return result
	}

	var attributed float64
	for i, b := range balances {
		gain := result.TotalGain * (values[i] / result.CurrentValue)
		if i == len(balances)-1 {
			gain = result.TotalGain - attributed
		}
		attributed += gain

		result.Rewards[i] = types.RewardShare{
			Symbol:   b.Symbol,
			Amount:   utils.SafeDiv(gain, b.PriceUSD),
			ValueUSD: gain,
		}
	}
	return result
}

// SelectGaugeReward returns the first reward whose symbol matches the priority list, case-insensitive.
// Earlier priority entries win over later ones regardless of the gauge's reward order.
func SelectGaugeReward(rewards []types.GaugeReward, priority []string) (types.GaugeReward, int, bool) {
	for _, want := range priority {
		want = types.NormalizeSymbol(want)
		if want == "" {
			continue
		}
		for i, r := range rewards {
			if types.NormalizeSymbol(r.Symbol) == want {
				return r, i, true
			}
		}
	}
	return types.GaugeReward{}, -1, false
}

// GaugeAttribution is the gauge reward picked as headline plus the ones reported alongside it.
type GaugeAttribution struct {
	Found       bool
	Headline    types.RewardShare
	TotalEarned decimal.Decimal
	Others      []types.RewardShare
}

// AttributeGaugeRewards values the gauge rewards at their current price. Only the headline reward
// counts towards the return; the others are informational.
func AttributeGaugeRewards(position types.GaugePosition, priority []string) GaugeAttribution {
	var result GaugeAttribution
	headline, idx, ok := SelectGaugeReward(position.Rewards, priority)
	if ok {
		result.Found = true
		result.Headline = gaugeShare(headline)
		result.TotalEarned = headline.TotalEarnedAmount()
	}
	for i, r := range position.Rewards {
		if i == idx {
			continue
		}
		result.Others = append(result.Others, gaugeShare(r))
	}
	return result
}

func gaugeShare(r types.GaugeReward) types.RewardShare {
	return types.RewardShare{
		Symbol:   r.Symbol,
		Amount:   r.ClaimableAmount().InexactFloat64(),
		ValueUSD: r.ValueUSD(),
	}
}

// YieldInput is a deposited token in a yield-bearing pool. Rate is nil when the token has no rate provider.
type YieldInput struct {
	Symbol        string
	InitialAmount decimal.Decimal
	Rate          *sdkmath.Int // 18-decimal fixed point
	PriceUSD      float64
}

// AttributeRateYield computes initialAmount * (rate - 1) per token, assuming a rate of exactly 1.0 at
// deposit time. Positions opened after the rate moved are overstated. Tokens without a provider or
// without an initial amount contribute a zero entry.
func AttributeRateYield(inputs []YieldInput) ([]types.RewardShare, float64) {
	out := make([]types.RewardShare, len(inputs))
	var total float64
	for i, in := range inputs {
		out[i] = types.RewardShare{Symbol: in.Symbol}
		if in.Rate == nil || in.Rate.IsNil() || in.InitialAmount.IsZero() {
			continue
		}
		appreciation := utils.FormatUnits(*in.Rate, bptDecimals).Sub(decimal.NewFromInt(1))
		amount := in.InitialAmount.Mul(appreciation).InexactFloat64()

		out[i].Amount = amount
		out[i].ValueUSD = amount * in.PriceUSD
		total += out[i].ValueUSD
	}
	return out, total
}

// ShareAccrual holds the inputs of an autocompounding vault position.
type ShareAccrual struct {
	Shares      sdkmath.Int
	DepositPPFS sdkmath.Int // zero when the historical share price is unavailable
	CurrentPPFS sdkmath.Int
}

// AccrualResult is expressed in raw units of the vault's underlying asset.
type AccrualResult struct {
	InitialUnderlying sdkmath.Int
	CurrentUnderlying sdkmath.Int
	GainTokens        sdkmath.Int
}

// AttributeVaultAccrual converts shares to underlying at the deposit and current price per full share.
func AttributeVaultAccrual(a ShareAccrual) AccrualResult {
	current := utils.MulDiv(a.Shares, a.CurrentPPFS, utils.WAD)
	initial := utils.MulDiv(a.Shares, a.DepositPPFS, utils.WAD)
	return AccrualResult{
		InitialUnderlying: initial,
		CurrentUnderlying: current,
		GainTokens:        current.Sub(initial),
	}
}
