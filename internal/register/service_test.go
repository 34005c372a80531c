package register

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/coupons"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

type stubCatalog struct {
	products map[uuid.UUID]catalog.Product
	down     error
}

func (s *stubCatalog) ListProducts(context.Context) ([]catalog.Product, error) {
	result := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	return result, nil
}

func (s *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if s.down != nil {
		return nil, s.down
	}
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

type stubCoupons struct {
	evaluation *coupons.Evaluation
	err        error
	calls      int
}

func (s *stubCoupons) Evaluate(context.Context, string, decimal.Decimal) (*coupons.Evaluation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.evaluation, nil
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) RateFor(context.Context, string, []string) (decimal.Decimal, error) {
	return f.rate, nil
}

func newFixture(t *testing.T) (Service, *Session, catalog.Product, *stubCoupons) {
	t.Helper()
	p := catalog.Product{
		ID:             uuid.New(),
		Name:           "espresso",
		SKU:            "SKU-espresso",
		UnitPrice:      decimal.RequireFromString("10.00"),
		QuantityOnHand: 5,
	}
	cat := &stubCatalog{products: map[uuid.UUID]catalog.Product{p.ID: p}}
	coup := &stubCoupons{}

	svc, err := NewService(cat, coup, fixedRate{rate: decimal.RequireFromString("0.13")}, "on")
	require.NoError(t, err)

	sess := NewManager(nil, nil).Session(context.Background(), "reg-1")
	return svc, sess, p, coup
}

func TestAddItemComputesTotals(t *testing.T) {
	svc, sess, p, _ := newFixture(t)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, "10", view.Lines[0].EffectiveUnitPrice.String())
	assert.Equal(t, "10", view.Totals.Subtotal.String())
	assert.Equal(t, "1.3", view.Totals.Tax.String())
	assert.Equal(t, "11.3", view.Totals.Total.String())
	assert.Equal(t, "reg-1", view.RegisterID)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, sess, _, _ := newFixture(t)

	_, err := svc.AddItem(context.Background(), sess, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestAddItemEnforcesStockAcrossCalls(t *testing.T) {
	svc, sess, p, _ := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.AddItem(ctx, sess, p.ID)
		require.NoError(t, err)
	}

	_, err := svc.AddItem(ctx, sess, p.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockExceeded))

	view, err := svc.View(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Lines[0].Quantity)
}

func TestUpdateQuantityDecrementsWithoutCatalog(t *testing.T) {
	ctx := context.Background()
	p := catalog.Product{
		ID:             uuid.New(),
		Name:           "espresso",
		SKU:            "SKU-espresso",
		UnitPrice:      decimal.RequireFromString("10.00"),
		QuantityOnHand: 5,
	}
	cat := &stubCatalog{products: map[uuid.UUID]catalog.Product{p.ID: p}}

	svc, err := NewService(cat, &stubCoupons{}, fixedRate{rate: decimal.Zero}, "on")
	require.NoError(t, err)
	sess := NewManager(nil, nil).Session(ctx, "reg-1")

	_, err = svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, sess, p.ID, 2)
	require.NoError(t, err)

	cat.down = pkgerrors.New(pkgerrors.CodeRequestFailed, "catalog unavailable")

	view, err := svc.UpdateQuantity(ctx, sess, p.ID, -1)
	require.NoError(t, err, "decrements must not depend on the catalog")
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)

	view, err = svc.UpdateQuantity(ctx, sess, p.ID, -5)
	require.NoError(t, err, "removals must not depend on the catalog")
	assert.Empty(t, view.Lines)

	_, err = svc.UpdateQuantity(ctx, sess, p.ID, 1)
	require.Error(t, err, "increments still consult the catalog")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRequestFailed))
}

func TestApplyCouponStoresResolvedAmount(t *testing.T) {
	svc, sess, p, coup := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)

	coup.evaluation = &coupons.Evaluation{
		Valid:        true,
		Discount:     decimal.RequireFromString("10"),
		DiscountType: enums.DiscountKindPercentage,
	}

	view, err := svc.ApplyCoupon(ctx, sess, "SAVE10")
	require.NoError(t, err)
	require.NotNil(t, view.Discount.Coupon)
	assert.Equal(t, "SAVE10", view.Discount.Coupon.Code)
	assert.Equal(t, "1", view.Discount.Coupon.Amount.String(), "10% of 10.00")
	assert.Equal(t, "9", view.Totals.DiscountedSubtotal.String())
}

func TestApplyCouponRejectsInvalidCode(t *testing.T) {
	svc, sess, p, coup := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)

	coup.evaluation = &coupons.Evaluation{Valid: false}
	_, err = svc.ApplyCoupon(ctx, sess, "NOPE")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	view, err := svc.View(ctx, sess)
	require.NoError(t, err)
	assert.True(t, view.Discount.IsZero(), "rejected coupon must not touch the cart")
}

func TestManualDiscountThenCoupon(t *testing.T) {
	svc, sess, p, coup := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)

	view, err := svc.SetManualDiscount(ctx, sess, enums.DiscountKindFixed, decimal.RequireFromString("2.00"))
	require.NoError(t, err)
	require.NotNil(t, view.Discount.Manual)

	coup.evaluation = &coupons.Evaluation{
		Valid:        true,
		Discount:     decimal.RequireFromString("1.00"),
		DiscountType: enums.DiscountKindFixed,
	}
	view, err = svc.ApplyCoupon(ctx, sess, "SAVE1")
	require.NoError(t, err)
	assert.Nil(t, view.Discount.Manual, "coupon replaces the manual discount")
	require.NotNil(t, view.Discount.Coupon)
}

func TestClearEmptiesCart(t *testing.T) {
	svc, sess, p, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, sess, p.ID)
	require.NoError(t, err)

	view, err := svc.Clear(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Totals.Total.IsZero())
}
