/*

Current pool state. Snapshots are read fresh on every valuation and never cached.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// PoolSnapshot is the state of a pool at valuation time.
type PoolSnapshot struct {
	ID                string        `json:"id"`
	Address           string        `json:"address"`
	TotalShares       sdkmath.Int   `json:"total_shares"`                  // 18 decimals
	TotalLiquidityUSD *float64      `json:"total_liquidity_usd,omitempty"` // absent for v3 pools
	Tokens            []TokenAmount `json:"tokens"`                        // pool balances in pool token order
}

// PositionShare is the user's direct claim on a pool or vault.
type PositionShare struct {
	Balance sdkmath.Int  `json:"balance"` // 18 decimals
	Pool    PoolSnapshot `json:"pool"`
}

// HasBalance reports whether the share is present and positive.
func (s *PositionShare) HasBalance() bool {
	return s != nil && !s.Balance.IsNil() && s.Balance.IsPositive()
}
