/*

Token quantities as they are read from chain or subgraph. Raw quantities are kept in the token's
smallest unit and only converted to human units when values are computed.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/elys-network/lp-tracker/internal/utils"
)

type TokenAmount struct {
	Address  string      `json:"address"`        // e.g., 0x29219dd400f2bf60e5a23d13be72b486d4038894
	Symbol   string      `json:"symbol"`         // e.g., scBTC
	Name     string      `json:"name,omitempty"` // e.g., Rings scBTC
	Decimals int         `json:"decimals"`       // e.g., 8
	Raw      sdkmath.Int `json:"raw"`            // quantity in the smallest unit
}

// Human returns the quantity in token units.
func (t TokenAmount) Human() decimal.Decimal {
	return utils.FormatUnits(t.Raw, t.Decimals)
}

// IsZero reports whether the raw quantity is nil or zero.
func (t TokenAmount) IsZero() bool {
	return t.Raw.IsNil() || t.Raw.IsZero()
}

// PriceData holds a single price observation
type PriceData struct {
	FeedID string  `json:"feed_id"`
	Date   string  `json:"date,omitempty"` // dd-mm-yyyy for historical observations
	Price  float64 `json:"price"`
	Source string  `json:"source"`
}
