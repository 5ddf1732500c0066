/*

PortfolioItem is the normalized record produced for each valued vault. Values are kept numeric here;
rounding and display strings are the report package's job.

*/

package types

import "time"

// AssetValue is an (asset, amount, USD value) tuple.
type AssetValue struct {
	Asset    string  `json:"asset"`
	Amount   float64 `json:"amount"`
	ValueUSD float64 `json:"value_usd"`
}

// MaxTuples is the number of deposit and reward tuples a record carries.
const MaxTuples = 2

type PortfolioItem struct {
	Type    string        `json:"type"`
	Name    string        `json:"name"`
	Address string        `json:"address"`
	Link    string        `json:"link"`
	Mode    ValuationMode `json:"mode"`

	DepositTime  time.Time    `json:"deposit_time"`
	Deposits     []AssetValue `json:"deposits"`
	Rewards      []AssetValue `json:"rewards"`
	DepositValue float64      `json:"deposit_value"`
	RewardValue  float64      `json:"reward_value"`
	CurrentValue float64      `json:"current_value"`

	TotalDays   float64 `json:"total_days"`
	TotalBlocks int64   `json:"total_blocks"`
	APR         float64 `json:"apr"`
	APY         float64 `json:"apy,omitempty"` // vault share accrual only

	SwapFee      float64 `json:"swap_fee,omitempty"`      // unstaked pool only
	TotalEarned  float64 `json:"total_earned,omitempty"`  // gauge headline token, claimable plus claimed
	StakedShares float64 `json:"staked_shares,omitempty"` // gauge balance
}

// AddDeposit appends a deposit tuple, ignoring anything past MaxTuples.
func (p *PortfolioItem) AddDeposit(v AssetValue) {
	if len(p.Deposits) < MaxTuples {
		p.Deposits = append(p.Deposits, v)
	}
}

// AddReward appends a reward tuple, ignoring anything past MaxTuples.
func (p *PortfolioItem) AddReward(v AssetValue) {
	if len(p.Rewards) < MaxTuples {
		p.Rewards = append(p.Rewards, v)
	}
}
