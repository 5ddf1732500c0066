package analyzer

import (
	"math"
	"time"
)

const daysPerYear = 365

// CalculateAPR annualizes a gain linearly: (gain / deposit) * (365 / days) * 100.
// A zero deposit or a non-positive period returns 0.
func CalculateAPR(depositValueUSD, gainUSD, days float64) float64 {
	if depositValueUSD == 0 || days <= 0 {
		return 0
	}
	apr := (gainUSD / depositValueUSD) * (daysPerYear / days) * 100
	if math.IsNaN(apr) || math.IsInf(apr, 0) {
		return 0
	}
	return apr
}

// CalculateCompoundedAPY returns ((current / initial)^(365 / days) - 1) * 100.
func CalculateCompoundedAPY(initialUSD, currentUSD, days float64) float64 {
	if initialUSD <= 0 || currentUSD <= 0 || days <= 0 {
		return 0
	}
	apy := (math.Pow(currentUSD/initialUSD, daysPerYear/days) - 1) * 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		return 0
	}
	return apy
}

// DaysBetween returns the fractional number of days from one instant to another.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Seconds() / 86400
}
