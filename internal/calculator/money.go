package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// SettledEpsilon is the largest absolute balance still treated as settled.
var SettledEpsilon = decimal.New(1, -2)

// sumTolerance bounds how far user-entered totals may drift from their target
// (e.g. percentages summing to 99.99 instead of 100).
var sumTolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// finite reports whether f can be turned into a decimal.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toDecimal converts a stored amount. Non-finite values cannot pass validation,
// so they are counted as zero rather than panicking.
func toDecimal(f float64) decimal.Decimal {
	if !finite(f) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Round2 rounds to two decimal places, half away from zero (half-up for the
// non-negative amounts the ledger deals with).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
