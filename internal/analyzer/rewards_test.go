package analyzer

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/utils"
)

func wad(s string) sdkmath.Int {
	v, err := utils.ParseUnits(s, 18)
	if err != nil {
		panic(err)
	}
	return v
}

func TestSelectMode(t *testing.T) {
	held := &types.PositionFacts{CurrentShare: &types.PositionShare{Balance: sdkmath.NewInt(1)}}
	staked := &types.PositionFacts{CurrentShare: &types.PositionShare{Balance: sdkmath.ZeroInt()}}

	tests := []struct {
		name  string
		vault types.VaultConfig
		facts *types.PositionFacts
		want  types.ValuationMode
	}{
		{"beefy", types.VaultConfig{Protocol: types.ProtocolBeefy}, held, types.ModeVaultShareAccrual},
		{"v3", types.VaultConfig{Protocol: types.ProtocolBeets, Version: types.VersionV3}, held, types.ModeYieldRateAppreciation},
		{"v2 held", types.VaultConfig{Protocol: types.ProtocolBeets, Version: types.VersionV2}, held, types.ModeUnstakedPool},
		{"v2 staked", types.VaultConfig{Protocol: types.ProtocolBeets, Version: types.VersionV2}, staked, types.ModeStakedGauge},
		{"v2 no share", types.VaultConfig{Protocol: types.ProtocolBeets, Version: types.VersionV2}, &types.PositionFacts{}, types.ModeStakedGauge},
		{"unknown", types.VaultConfig{Protocol: "curve"}, held, types.ModeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectMode(tt.vault, tt.facts))
		})
	}
}

func TestAttributePoolGainProportionalSplit(t *testing.T) {
	balances := []PricedBalance{
		{Symbol: "A", Amount: decimal.NewFromInt(60), PriceUSD: 1},
		{Symbol: "B", Amount: decimal.NewFromInt(160), PriceUSD: 1},
	}

	result := AttributePoolGain(balances, 200)
	assert.InDelta(t, 220, result.CurrentValue, 1e-9)
	assert.InDelta(t, 20, result.TotalGain, 1e-9)
	require.Len(t, result.Rewards, 2)
	assert.Equal(t, "A", result.Rewards[0].Symbol)
	assert.InDelta(t, 5.4545, result.Rewards[0].ValueUSD, 1e-4)
	assert.InDelta(t, 14.5455, result.Rewards[1].ValueUSD, 1e-4)
	assert.InDelta(t, 5.4545, result.Rewards[0].Amount, 1e-4)
}

func TestAttributePoolGainSumsToTotal(t *testing.T) {
	cases := [][]PricedBalance{
		{{Symbol: "A", Amount: decimal.RequireFromString("0.333333333333333333"), PriceUSD: 97123.17}},
		{
			{Symbol: "scBTC", Amount: decimal.RequireFromString("0.01234567"), PriceUSD: 96542.1},
			{Symbol: "LBTC", Amount: decimal.RequireFromString("0.0098765"), PriceUSD: 96611.7},
		},
		{
			{Symbol: "X", Amount: decimal.RequireFromString("1.1"), PriceUSD: 0.3},
			{Symbol: "Y", Amount: decimal.RequireFromString("7.77"), PriceUSD: 3.1},
			{Symbol: "Z", Amount: decimal.RequireFromString("1e-9"), PriceUSD: 12},
		},
	}
	for _, balances := range cases {
		result := AttributePoolGain(balances, 123.456)
		var sum float64
		for _, r := range result.Rewards {
			sum += r.ValueUSD
		}
		assert.InDelta(t, result.TotalGain, sum, 1e-9)
	}
}

func TestAttributePoolGainZeroCurrentValue(t *testing.T) {
	balances := []PricedBalance{
		{Symbol: "A", Amount: decimal.Zero, PriceUSD: 1},
		{Symbol: "B", Amount: decimal.NewFromInt(5), PriceUSD: 0},
	}

	result := AttributePoolGain(balances, 50)
	assert.Zero(t, result.CurrentValue)
	assert.InDelta(t, -50, result.TotalGain, 1e-9)
	for _, r := range result.Rewards {
		assert.Zero(t, r.Amount)
		assert.Zero(t, r.ValueUSD)
	}
	assert.Equal(t, "B", result.Rewards[1].Symbol)
}

func TestUserPoolBalances(t *testing.T) {
	liquidity := 2000.0
	share := &types.PositionShare{
		Balance: wad("25"),
		Pool: types.PoolSnapshot{
			TotalShares:       wad("100"),
			TotalLiquidityUSD: &liquidity,
			Tokens: []types.TokenAmount{
				{Symbol: "scBTC", Decimals: 8, Raw: sdkmath.NewInt(400_000_000)},
				{Symbol: "LBTC", Decimals: 8, Raw: sdkmath.NewInt(200_000_001)},
			},
		},
	}

	balances := UserPoolBalances(share)
	require.Len(t, balances, 2)
	assert.Equal(t, int64(100_000_000), balances[0].Raw.Int64())
	assert.Equal(t, int64(50_000_000), balances[1].Raw.Int64())
	assert.Equal(t, "scBTC", balances[0].Symbol)
	// the snapshot is not modified
	assert.Equal(t, int64(400_000_000), share.Pool.Tokens[0].Raw.Int64())

	assert.True(t, SharePercentage(share).Equal(decimal.RequireFromString("0.25")))

	value, ok := BPTPositionValue(share)
	require.True(t, ok)
	assert.InDelta(t, 500, value, 1e-9)
}

func TestSharePercentageZeroShares(t *testing.T) {
	share := &types.PositionShare{Balance: wad("1"), Pool: types.PoolSnapshot{TotalShares: sdkmath.ZeroInt()}}
	assert.True(t, SharePercentage(share).IsZero())
	assert.Equal(t, int64(0), UserPoolBalances(&types.PositionShare{
		Balance: wad("1"),
		Pool:    types.PoolSnapshot{TotalShares: sdkmath.ZeroInt(), Tokens: []types.TokenAmount{{Raw: sdkmath.NewInt(10)}}},
	})[0].Raw.Int64())

	_, ok := BPTPositionValue(share)
	assert.False(t, ok)
}

func TestSelectGaugeReward(t *testing.T) {
	rewards := []types.GaugeReward{
		{Symbol: "wS"},
		{Symbol: "BEETS"},
		{Symbol: "SILO"},
	}

	r, idx, ok := SelectGaugeReward(rewards, []string{"beets"})
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "BEETS", r.Symbol)

	r, idx, ok = SelectGaugeReward(rewards, []string{"silo", "beets"})
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "SILO", r.Symbol)

	_, idx, ok = SelectGaugeReward(rewards, []string{"", "osonic"})
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestAttributeGaugeRewardsTotalEarnedIsExact(t *testing.T) {
	position := types.GaugePosition{
		StakedBalance: wad("3"),
		Rewards: []types.GaugeReward{
			{Symbol: "wS", Decimals: 18, Claimable: wad("2"), Claimed: sdkmath.ZeroInt(), PriceUSD: 0.5},
			{Symbol: "BEETS", Decimals: 18, Claimable: sdkmath.NewInt(300), Claimed: sdkmath.NewInt(700), PriceUSD: 0.03},
		},
	}

	result := AttributeGaugeRewards(position, []string{"beets"})
	require.True(t, result.Found)
	assert.Equal(t, "BEETS", result.Headline.Symbol)
	assert.Equal(t, "0.000000000000001", result.TotalEarned.String())
	assert.InDelta(t, 3e-16, result.Headline.Amount, 1e-30)

	require.Len(t, result.Others, 1)
	assert.Equal(t, "wS", result.Others[0].Symbol)
	assert.InDelta(t, 2, result.Others[0].Amount, 1e-12)
	assert.InDelta(t, 1, result.Others[0].ValueUSD, 1e-12)
}

func TestAttributeGaugeRewardsWithoutMatch(t *testing.T) {
	position := types.GaugePosition{Rewards: []types.GaugeReward{{Symbol: "wS", Decimals: 18, Claimable: wad("1"), PriceUSD: 0.5}}}

	result := AttributeGaugeRewards(position, []string{"beets"})
	assert.False(t, result.Found)
	assert.Len(t, result.Others, 1)
	assert.True(t, result.TotalEarned.IsZero())
}

func TestAttributeRateYield(t *testing.T) {
	rate := wad("1.05")
	inputs := []YieldInput{
		{Symbol: "wanS", InitialAmount: decimal.NewFromInt(100), Rate: &rate, PriceUSD: 2},
		{Symbol: "USDC", InitialAmount: decimal.NewFromInt(100), PriceUSD: 1},
		{Symbol: "wstS", InitialAmount: decimal.Zero, Rate: &rate, PriceUSD: 2},
	}

	rewards, total := AttributeRateYield(inputs)
	require.Len(t, rewards, 3)
	assert.InDelta(t, 5, rewards[0].Amount, 1e-12)
	assert.InDelta(t, 10, rewards[0].ValueUSD, 1e-12)
	assert.Equal(t, types.RewardShare{Symbol: "USDC"}, rewards[1])
	assert.Equal(t, types.RewardShare{Symbol: "wstS"}, rewards[2])
	assert.InDelta(t, 10, total, 1e-12)
}

func TestAttributeVaultAccrual(t *testing.T) {
	result := AttributeVaultAccrual(ShareAccrual{
		Shares:      wad("10"),
		DepositPPFS: wad("1.02"),
		CurrentPPFS: wad("1.1"),
	})
	assert.Equal(t, wad("11").String(), result.CurrentUnderlying.String())
	assert.Equal(t, wad("10.2").String(), result.InitialUnderlying.String())
	assert.Equal(t, wad("0.8").String(), result.GainTokens.String())
}

func TestAttributeVaultAccrualMissingDepositPrice(t *testing.T) {
	result := AttributeVaultAccrual(ShareAccrual{
		Shares:      wad("10"),
		DepositPPFS: sdkmath.ZeroInt(),
		CurrentPPFS: wad("1.1"),
	})
	assert.True(t, result.InitialUnderlying.IsZero())
	assert.Equal(t, result.CurrentUnderlying.String(), result.GainTokens.String())
}
