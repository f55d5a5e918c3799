// Package pricing computes final booking prices. It is pure: no I/O and
// no state, so the same inputs always produce the same total.
package pricing

import "github.com/shopspring/decimal"

// Base returns the pre-discount amount: unit price times participant count.
func Base(unitPrice decimal.Decimal, participants int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(participants)))
}

// Total returns the final price for a booking: unit price times participant
// count minus the discount, clamped at zero and rounded to cents. The caller
// is responsible for rejecting non-positive participant counts.
func Total(unitPrice decimal.Decimal, participants int, discount decimal.Decimal) decimal.Decimal {
	total := Base(unitPrice, participants).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}
