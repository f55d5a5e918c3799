// Package promo evaluates promo codes against a chargeable amount.
//
// Evaluation is pure: nothing here touches the database or increments a
// usage counter. Consuming a code is the booking transaction's job, so a
// preview caller (the validate endpoint) can reuse these functions without
// side effects.
package promo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AmeyGaikar/book-it/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Usable reports whether a promo code can be applied at the given time.
// A code is usable when it is active, inside its validity window, and has
// not exhausted its usage limit. Nil window/limit fields are unconstrained.
func Usable(p *model.PromoCode, now time.Time) bool {
	if p == nil || !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return false
	}
	return true
}

// Discount returns the discount the promo grants on the given amount,
// rounded to cents. A fixed discount is clamped to the amount it applies
// to, so the resulting total can never go negative.
func Discount(p *model.PromoCode, amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.DiscountType {
	case model.DiscountPercentage:
		d = amount.Mul(p.DiscountValue).Div(hundred)
	case model.DiscountFixed:
		d = decimal.Min(p.DiscountValue, amount)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
