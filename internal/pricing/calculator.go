// Package pricing computes cart money amounts. Every function is pure:
// the same cart state always produces the same totals, and nothing here
// mutates the cart.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// LineTotal is the effective unit price times quantity.
func LineTotal(line cart.Line) decimal.Decimal {
	return line.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// Subtotal sums LineTotal over all lines.
func Subtotal(c *cart.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(LineTotal(line))
	}
	return total
}

// DiscountAmount resolves the cart's order-level discount to an absolute
// amount against the given subtotal. Percentage discounts are rounded to the
// cent; fixed and coupon amounts are capped at the subtotal so the
// discounted subtotal can never go negative.
func DiscountAmount(c *cart.Cart, subtotal decimal.Decimal) decimal.Decimal {
	switch {
	case c.Discount.Manual != nil:
		manual := c.Discount.Manual
		if manual.Kind == enums.DiscountKindPercentage {
			return subtotal.Mul(manual.Value).Div(hundred).Round(2)
		}
		return decimal.Min(manual.Value, subtotal)
	case c.Discount.Coupon != nil:
		return decimal.Min(c.Discount.Coupon.Amount, subtotal)
	default:
		return decimal.Zero
	}
}

// DiscountedSubtotal is the subtotal less the order discount, floored at
// zero.
func DiscountedSubtotal(c *cart.Cart) decimal.Decimal {
	subtotal := Subtotal(c)
	discounted := subtotal.Sub(DiscountAmount(c, subtotal))
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

// Tax applies the resolved rate to the discounted subtotal, rounded to the
// cent.
func Tax(c *cart.Cart, taxRate decimal.Decimal) decimal.Decimal {
	return DiscountedSubtotal(c).Mul(taxRate).Round(2)
}

// Total is the discounted subtotal plus tax.
func Total(c *cart.Cart, taxRate decimal.Decimal) decimal.Decimal {
	return DiscountedSubtotal(c).Add(Tax(c, taxRate))
}

// Totals aggregates every derived amount for a cart at a given tax rate.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	Discount           decimal.Decimal `json:"discount"`
	DiscountedSubtotal decimal.Decimal `json:"discounted_subtotal"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Tax                decimal.Decimal `json:"tax"`
	Total              decimal.Decimal `json:"total"`
}

// Compute derives all totals in one pass.
func Compute(c *cart.Cart, taxRate decimal.Decimal) Totals {
	subtotal := Subtotal(c)
	discount := DiscountAmount(c, subtotal)
	discounted := subtotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	tax := discounted.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:           subtotal,
		Discount:           discount,
		DiscountedSubtotal: discounted,
		TaxRate:            taxRate,
		Tax:                tax,
		Total:              discounted.Add(tax),
	}
}
