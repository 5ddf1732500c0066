/*
This file contains conversions between raw on-chain integers (smallest token unit) and human units.
Raw quantities stay in sdkmath.Int for every addition, subtraction and multiplication; they become
decimals only when a value is computed or displayed.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Error definitions for conversion failures
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
	ErrInvalidAmount    = errors.New("amount is not a valid decimal")
)

// MaxDecimals bounds the token precision accepted by the converters.
const MaxDecimals = 36

// WAD is the 18-decimal fixed point one used by rate providers and vault share prices.
var WAD = Pow10(18)

// Pow10 returns 10^n as an sdkmath.Int.
func Pow10(n int) sdkmath.Int {
	if n <= 0 {
		return sdkmath.OneInt()
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}

// FormatUnits converts a raw quantity to token units. A nil amount is zero.
func FormatUnits(raw sdkmath.Int, decimals int) decimal.Decimal {
	if raw.IsNil() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw.BigInt(), -int32(decimals))
}

// ParseUnits converts a decimal string in token units to a raw quantity.
// Digits beyond the token precision are truncated.
func ParseUnits(amount string, decimals int) (sdkmath.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, decimals, MaxDecimals)
	}
	if amount == "" {
		return sdkmath.ZeroInt(), nil
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q: %w", ErrInvalidAmount, amount, err)
	}
	if d.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAmountNegative, amount)
	}

	return sdkmath.NewIntFromBigInt(d.Shift(int32(decimals)).Truncate(0).BigInt()), nil
}

// RawToFloat64 converts a raw quantity to a float64 in token units
func RawToFloat64(amount sdkmath.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, decimals, MaxDecimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result, exact := FormatUnits(amount, decimals).Float64()
	if !exact && result == 0 && !amount.IsZero() {
		return 0, fmt.Errorf("%w: %s underflows float64", ErrConversionFailed, amount.String())
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}

// MulDiv returns a*b/denominator truncated toward zero. A zero denominator yields zero.
func MulDiv(a, b, denominator sdkmath.Int) sdkmath.Int {
	if a.IsNil() || b.IsNil() || denominator.IsNil() || denominator.IsZero() {
		return sdkmath.ZeroInt()
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return sdkmath.NewIntFromBigInt(product.Quo(product, denominator.BigInt()))
}

// SafeDiv divides two floats, returning zero when the result would not be finite.
func SafeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}
