/*

Deposit history and attributed rewards for a single position.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/elys-network/lp-tracker/internal/utils"
)

// Deposit is a join/add event. Tokens are parallel to the pool token list at deposit time.
type Deposit struct {
	ID          string        `json:"id"`
	Timestamp   int64         `json:"timestamp"` // unix seconds
	BlockNumber uint64        `json:"block_number"`
	Tokens      []TokenAmount `json:"tokens"`
	ValueUSD    *float64      `json:"value_usd,omitempty"` // v3 deposits never carry one
}

// Time returns the deposit timestamp in UTC.
func (d Deposit) Time() time.Time {
	return time.Unix(d.Timestamp, 0).UTC()
}

// PositionFacts is everything a gateway knows about a user's position in one vault.
type PositionFacts struct {
	Deposits     []Deposit      `json:"deposits"` // ascending by timestamp
	CurrentShare *PositionShare `json:"current_share,omitempty"`
}

// FirstDeposit returns the cost basis of the position.
func (f *PositionFacts) FirstDeposit() (Deposit, bool) {
	if f == nil || len(f.Deposits) == 0 {
		return Deposit{}, false
	}
	return f.Deposits[0], true
}

// RewardShare is an attributed gain for one token.
type RewardShare struct {
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`    // token units
	ValueUSD float64 `json:"value_usd"`
}

// GaugeReward is a reward token accrued by a gauge for a user.
type GaugeReward struct {
	TokenAddress string      `json:"token_address"`
	Symbol       string      `json:"symbol"`
	Name         string      `json:"name"`
	Decimals     int         `json:"decimals"`
	Claimable    sdkmath.Int `json:"claimable"`
	Claimed      sdkmath.Int `json:"claimed"`
	PriceUSD     float64     `json:"price_usd"`
}

// TotalEarned is claimable plus claimed in raw units.
func (g GaugeReward) TotalEarned() sdkmath.Int {
	claimable, claimed := g.Claimable, g.Claimed
	if claimable.IsNil() {
		claimable = sdkmath.ZeroInt()
	}
	if claimed.IsNil() {
		claimed = sdkmath.ZeroInt()
	}
	return claimable.Add(claimed)
}

func (g GaugeReward) ClaimableAmount() decimal.Decimal {
	return utils.FormatUnits(g.Claimable, g.Decimals)
}

func (g GaugeReward) TotalEarnedAmount() decimal.Decimal {
	return utils.FormatUnits(g.TotalEarned(), g.Decimals)
}

// ValueUSD values the claimable amount at the current price.
func (g GaugeReward) ValueUSD() float64 {
	return g.ClaimableAmount().InexactFloat64() * g.PriceUSD
}

// GaugePosition is the user's staked balance in a gauge and the rewards it accrued.
type GaugePosition struct {
	StakedBalance sdkmath.Int   `json:"staked_balance"` // 18 decimals
	Rewards       []GaugeReward `json:"rewards"`        // gauge reward token order
}
