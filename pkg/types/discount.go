package types

import (
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/enums"
)

// Discount is the single order-level adjustment carried by a cart. It is a
// tagged variant: none, a manually entered discount, or a validated coupon.
// At most one of Manual and Coupon is set; the setters on the cart replace
// the whole value, so the two can never coexist.
type Discount struct {
	Manual *ManualDiscount `json:"manual,omitempty"`
	Coupon *CouponDiscount `json:"coupon,omitempty"`
}

// ManualDiscount is an order discount keyed in by the operator.
type ManualDiscount struct {
	Kind  enums.DiscountKind `json:"kind"`
	Value decimal.Decimal    `json:"value"`
}

// CouponDiscount is the resolved result of an external coupon evaluation.
// Amount is the absolute discount the validator granted for the code.
type CouponDiscount struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// NoDiscount returns the empty variant.
func NoDiscount() Discount {
	return Discount{}
}

// NewManualDiscount builds the manual variant.
func NewManualDiscount(kind enums.DiscountKind, value decimal.Decimal) Discount {
	return Discount{Manual: &ManualDiscount{Kind: kind, Value: value}}
}

// NewCouponDiscount builds the coupon variant.
func NewCouponDiscount(code string, amount decimal.Decimal) Discount {
	return Discount{Coupon: &CouponDiscount{Code: code, Amount: amount}}
}

// IsZero reports whether no discount is applied.
func (d Discount) IsZero() bool {
	return d.Manual == nil && d.Coupon == nil
}

// CouponCode returns the applied coupon code, if any.
func (d Discount) CouponCode() string {
	if d.Coupon == nil {
		return ""
	}
	return d.Coupon.Code
}
