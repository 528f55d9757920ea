package aggregate

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// FormatOneDecimal renders v with exactly one decimal ("3.0").
func FormatOneDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0"
	}
	return decimal.NewFromFloat(v).StringFixed(1)
}
