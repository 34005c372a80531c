package register

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/coupons"
	"github.com/tillpoint/pos-engine/internal/pricing"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// RateResolver answers the applicable tax rate for a region and the cart's
// line categories.
type RateResolver interface {
	RateFor(ctx context.Context, region string, categories []string) (decimal.Decimal, error)
}

// Service exposes the register-facing cart operations. Every mutation runs
// atomically inside the session and is rejected, not partially applied, on
// validation or stock failures.
type Service interface {
	View(ctx context.Context, sess *Session) (*CartView, error)
	AddItem(ctx context.Context, sess *Session, productID uuid.UUID) (*CartView, error)
	UpdateQuantity(ctx context.Context, sess *Session, productID uuid.UUID, delta int) (*CartView, error)
	RemoveItem(ctx context.Context, sess *Session, productID uuid.UUID) (*CartView, error)
	SetLineOverride(ctx context.Context, sess *Session, productID uuid.UUID, override cart.LineOverride) (*CartView, error)
	SetCustomer(ctx context.Context, sess *Session, customer *types.Customer) (*CartView, error)
	SetManualDiscount(ctx context.Context, sess *Session, kind enums.DiscountKind, value decimal.Decimal) (*CartView, error)
	ApplyCoupon(ctx context.Context, sess *Session, code string) (*CartView, error)
	ClearDiscount(ctx context.Context, sess *Session) (*CartView, error)
	SetNotes(ctx context.Context, sess *Session, text string) (*CartView, error)
	Clear(ctx context.Context, sess *Session) (*CartView, error)
}

type service struct {
	catalog catalog.Service
	coupons coupons.Evaluator
	rates   RateResolver
	region  string
}

// NewService builds the register cart service.
func NewService(catalogSvc catalog.Service, couponSvc coupons.Evaluator, rates RateResolver, region string) (Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon evaluator required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate resolver required")
	}
	return &service{
		catalog: catalogSvc,
		coupons: couponSvc,
		rates:   rates,
		region:  region,
	}, nil
}

// CartView is the computed view of a register's live cart: the snapshot plus
// all derived totals.
type CartView struct {
	RegisterID string          `json:"register_id"`
	Lines      []LineView      `json:"lines"`
	Customer   *types.Customer `json:"customer,omitempty"`
	Discount   types.Discount  `json:"discount"`
	Notes      string          `json:"notes,omitempty"`
	HoldID     string          `json:"hold_id,omitempty"`
	Totals     pricing.Totals  `json:"totals"`
}

// LineView decorates a cart line with its derived amounts.
type LineView struct {
	cart.Line
	EffectiveUnitPrice decimal.Decimal `json:"effective_unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

func (s *service) View(ctx context.Context, sess *Session) (*CartView, error) {
	return s.buildView(ctx, sess, sess.Snapshot())
}

func (s *service) AddItem(ctx context.Context, sess *Session, productID uuid.UUID) (*CartView, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(*product)
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) UpdateQuantity(ctx context.Context, sess *Session, productID uuid.UUID, delta int) (*CartView, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	// Decrements and removals never consult the catalog: only increments are
	// stock-guarded, and a line must stay removable while the catalog is
	// unreachable.
	if delta <= 0 {
		if err := sess.Mutate(ctx, func(c *cart.Cart) error {
			return c.UpdateQuantity(catalog.Product{ID: productID}, delta)
		}); err != nil {
			return nil, err
		}
		return s.View(ctx, sess)
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.UpdateQuantity(*product, delta)
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) RemoveItem(ctx context.Context, sess *Session, productID uuid.UUID) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.RemoveItem(productID)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) SetLineOverride(ctx context.Context, sess *Session, productID uuid.UUID, override cart.LineOverride) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.SetLineOverride(productID, override)
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) SetCustomer(ctx context.Context, sess *Session, customer *types.Customer) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.SetCustomer(customer)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) SetManualDiscount(ctx context.Context, sess *Session, kind enums.DiscountKind, value decimal.Decimal) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.SetManualDiscount(kind, value)
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

// ApplyCoupon validates the code against the promotion service using the
// current subtotal and stores the resolved absolute amount. An invalid code
// is rejected before the cart is touched.
func (s *service) ApplyCoupon(ctx context.Context, sess *Session, code string) (*CartView, error) {
	subtotal := pricing.Subtotal(sess.Snapshot())

	evaluation, err := s.coupons.Evaluate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}
	if !evaluation.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is not valid").WithDetails(map[string]any{"code": code})
	}

	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.SetCoupon(code, evaluation.AmountFor(subtotal))
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) ClearDiscount(ctx context.Context, sess *Session) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.ClearDiscount()
		return nil
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) SetNotes(ctx context.Context, sess *Session, text string) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.SetNotes(text)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) Clear(ctx context.Context, sess *Session) (*CartView, error) {
	if err := sess.Mutate(ctx, func(c *cart.Cart) error {
		c.Clear()
		return nil
	}); err != nil {
		return nil, err
	}
	return s.View(ctx, sess)
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) buildView(ctx context.Context, sess *Session, snapshot *cart.Cart) (*CartView, error) {
	rate, err := s.rateFor(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		RegisterID: sess.ID(),
		Customer:   snapshot.Customer,
		Discount:   snapshot.Discount,
		Notes:      snapshot.Notes,
		HoldID:     snapshot.HoldID,
		Totals:     pricing.Compute(snapshot, rate),
	}
	view.Lines = make([]LineView, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		view.Lines = append(view.Lines, LineView{
			Line:               line,
			EffectiveUnitPrice: line.EffectiveUnitPrice(),
			LineTotal:          pricing.LineTotal(line),
		})
	}
	return view, nil
}

func (s *service) rateFor(ctx context.Context, snapshot *cart.Cart) (decimal.Decimal, error) {
	categories := make([]string, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		categories = append(categories, line.Category)
	}
	rate, err := s.rates.RateFor(ctx, s.region, categories)
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}
