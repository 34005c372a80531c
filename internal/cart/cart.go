package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/stock"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// Line is a single product entry in the cart. Product identity and pricing
// are denormalized at add time so holds, quotes and receipts survive catalog
// drift.
type Line struct {
	ProductID      uuid.UUID        `json:"product_id"`
	Name           string           `json:"name"`
	SKU            string           `json:"sku"`
	Category       string           `json:"category"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	Quantity       int              `json:"quantity"`
	PriceOverride  *decimal.Decimal `json:"price_override,omitempty"`
	ItemDiscount   decimal.Decimal  `json:"item_discount"`
	DiscountReason string           `json:"discount_reason,omitempty"`
}

// EffectiveUnitPrice is the price a unit actually sells at: the override (or
// catalog price) minus the per-unit item discount, floored at zero.
func (l Line) EffectiveUnitPrice() decimal.Decimal {
	base := l.UnitPrice
	if l.PriceOverride != nil {
		base = *l.PriceOverride
	}
	price := base.Sub(l.ItemDiscount)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// LineOverride carries optional per-line price adjustments. Nil fields leave
// the current value untouched.
type LineOverride struct {
	PriceOverride  *decimal.Decimal
	ItemDiscount   *decimal.Decimal
	DiscountReason *string
}

// Cart is the in-progress sale being assembled at a register. Lines are
// ordered and unique by product id. The zero value is an empty cart.
type Cart struct {
	Lines    []Line          `json:"lines"`
	Customer *types.Customer `json:"customer,omitempty"`
	Discount types.Discount  `json:"discount"`
	Notes    string          `json:"notes,omitempty"`
	// HoldID records provenance when the cart was resumed from a hold.
	HoldID string `json:"hold_id,omitempty"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Quantity returns the quantity currently carted for the product, zero when
// the product is not in the cart.
func (c *Cart) Quantity(productID uuid.UUID) int {
	if line := c.line(productID); line != nil {
		return line.Quantity
	}
	return 0
}

func (c *Cart) line(productID uuid.UUID) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddItem adds one unit of the product, creating the line or incrementing an
// existing one. The increment is subject to the stock guard; on rejection the
// cart is unchanged.
func (c *Cart) AddItem(product catalog.Product) error {
	existing := c.line(product.ID)
	current := 0
	if existing != nil {
		current = existing.Quantity
	}
	if err := stock.GuardIncrement(product, current); err != nil {
		return err
	}
	if existing != nil {
		existing.Quantity++
		return nil
	}
	c.Lines = append(c.Lines, Line{
		ProductID:    product.ID,
		Name:         product.Name,
		SKU:          product.SKU,
		Category:     product.Category,
		UnitPrice:    product.UnitPrice,
		Quantity:     1,
		ItemDiscount: decimal.Zero,
	})
	return nil
}

// UpdateQuantity applies a signed delta to the product's line. Positive
// deltas are guarded against the product's on-hand count; a resulting
// quantity of zero or less removes the line. Deltas on absent lines are only
// meaningful when positive, which requires the product snapshot.
func (c *Cart) UpdateQuantity(product catalog.Product, delta int) error {
	existing := c.line(product.ID)
	current := 0
	if existing != nil {
		current = existing.Quantity
	}

	next := current + delta
	if next <= 0 {
		c.RemoveItem(product.ID)
		return nil
	}
	if delta > 0 {
		// Each unit of the increase must clear the guard, so the whole
		// delta is rejected once the target exceeds the on-hand count.
		if err := stock.GuardQuantity(product, next); err != nil {
			return err
		}
	}
	if existing == nil {
		if err := c.AddItem(product); err != nil {
			return err
		}
		existing = c.line(product.ID)
	}
	existing.Quantity = next
	return nil
}

// RemoveItem drops the product's line. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// SetLineOverride updates the price override, item discount and discount
// reason on the product's line. A positive item discount requires a reason.
func (c *Cart) SetLineOverride(productID uuid.UUID, override LineOverride) error {
	line := c.line(productID)
	if line == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}

	next := *line
	if override.PriceOverride != nil {
		if override.PriceOverride.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price override must not be negative")
		}
		value := *override.PriceOverride
		next.PriceOverride = &value
	}
	if override.ItemDiscount != nil {
		if override.ItemDiscount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item discount must not be negative")
		}
		next.ItemDiscount = *override.ItemDiscount
	}
	if override.DiscountReason != nil {
		next.DiscountReason = strings.TrimSpace(*override.DiscountReason)
	}
	if next.ItemDiscount.IsPositive() && next.DiscountReason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount reason is required when an item discount is set")
	}

	*line = next
	return nil
}

// SetCustomer attaches or detaches the customer reference.
func (c *Cart) SetCustomer(customer *types.Customer) {
	if customer == nil {
		c.Customer = nil
		return
	}
	value := *customer
	c.Customer = &value
}

// SetManualDiscount replaces the order discount with a manually entered one,
// clearing any applied coupon.
func (c *Cart) SetManualDiscount(kind enums.DiscountKind, value decimal.Decimal) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown discount kind")
	}
	if value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must not be negative")
	}
	c.Discount = types.NewManualDiscount(kind, value)
	return nil
}

// SetCoupon replaces the order discount with a validated coupon, clearing any
// manual discount.
func (c *Cart) SetCoupon(code string, amount decimal.Decimal) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon amount must not be negative")
	}
	c.Discount = types.NewCouponDiscount(code, amount)
	return nil
}

// ClearDiscount drops any order-level discount or coupon.
func (c *Cart) ClearDiscount() {
	c.Discount = types.NoDiscount()
}

// SetNotes replaces the free-text note.
func (c *Cart) SetNotes(text string) {
	c.Notes = text
}

// Clear resets the cart to empty, dropping customer, discount, notes and
// hold provenance.
func (c *Cart) Clear() {
	*c = Cart{}
}

// Clone returns a deep copy. Held and quoted snapshots are clones, never
// live references.
func (c *Cart) Clone() *Cart {
	copied := &Cart{
		Discount: c.Discount,
		Notes:    c.Notes,
		HoldID:   c.HoldID,
	}
	if len(c.Lines) > 0 {
		copied.Lines = make([]Line, len(c.Lines))
		copy(copied.Lines, c.Lines)
		for i := range copied.Lines {
			if c.Lines[i].PriceOverride != nil {
				value := *c.Lines[i].PriceOverride
				copied.Lines[i].PriceOverride = &value
			}
		}
	}
	if c.Customer != nil {
		customer := *c.Customer
		copied.Customer = &customer
	}
	if c.Discount.Manual != nil {
		manual := *c.Discount.Manual
		copied.Discount.Manual = &manual
	}
	if c.Discount.Coupon != nil {
		coupon := *c.Discount.Coupon
		copied.Discount.Coupon = &coupon
	}
	return copied
}

// Restore replaces the cart's contents with the snapshot.
func (c *Cart) Restore(snapshot *Cart) {
	restored := snapshot.Clone()
	*c = *restored
}
