package models

import "github.com/shopspring/decimal"

// MaxAmount is the exclusive upper bound of a numeric(12,2) money column.
var MaxAmount = decimal.New(1, 10)

// NormalizeAmount rounds amount to agorot and reports whether the result can be
// stored as a money value: positive and below MaxAmount.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, bool) {
	// Compare before rounding so huge exponents are never expanded.
	if amount.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, false
	}
	rounded := amount.Round(2)
	if !rounded.IsPositive() || rounded.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, false
	}
	return rounded, true
}
