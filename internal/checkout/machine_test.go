package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/pricing"
	"github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/pkg/backend"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/pagination"
)

type stubSales struct {
	mu      sync.Mutex
	calls   int
	failure error
	block   chan struct{}
}

func (s *stubSales) CreateSale(_ context.Context, snapshot *cart.Cart, totals pricing.Totals, method enums.PaymentMethod, tendered *decimal.Decimal) (*backend.Sale, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failure != nil {
		return nil, s.failure
	}
	return &backend.Sale{
		ID:                uuid.New(),
		TransactionNumber: "TX-0042",
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Total:             totals.Total,
		PaymentMethod:     method,
		AmountTendered:    tendered,
		Status:            enums.SaleStatusCompleted,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

func (s *stubSales) VoidSale(context.Context, uuid.UUID, string) (*backend.Sale, error) {
	return nil, nil
}

func (s *stubSales) ProcessReturn(context.Context, uuid.UUID, string) (*backend.Sale, error) {
	return nil, nil
}

func (s *stubSales) ListSales(context.Context, pagination.Params) (*backend.SalesPage, error) {
	return nil, nil
}

func (s *stubSales) GetSale(context.Context, uuid.UUID) (*backend.Sale, error) {
	return nil, nil
}

func (s *stubSales) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) RateFor(context.Context, string, []string) (decimal.Decimal, error) {
	return f.rate, nil
}

func newMachine(t *testing.T, stub *stubSales) (Service, *register.Session) {
	t.Helper()
	svc, err := NewService(stub, fixedRate{rate: decimal.RequireFromString("0.13")}, "on", nil, nil)
	require.NoError(t, err)
	sess := register.NewManager(nil, nil).Session(context.Background(), "reg-1")
	return svc, sess
}

func fillCart(t *testing.T, sess *register.Session, price string, qty int) {
	t.Helper()
	product := catalog.Product{
		ID:             uuid.New(),
		Name:           "widget",
		SKU:            "SKU-widget",
		UnitPrice:      decimal.RequireFromString(price),
		QuantityOnHand: 100,
	}
	require.NoError(t, sess.Mutate(context.Background(), func(c *cart.Cart) error {
		if err := c.AddItem(product); err != nil {
			return err
		}
		return c.UpdateQuantity(product, qty-1)
	}))
}

func TestBeginRejectsEmptyCart(t *testing.T) {
	svc, sess := newMachine(t, &stubSales{})

	_, err := svc.Begin(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCashCheckoutHappyPath(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "10.00", 3)

	status, err := svc.Begin(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateMethodSelection, status.State)

	status, err = svc.SelectMethod(ctx, sess, enums.PaymentMethodCash)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCashTender, status.State)

	result, err := svc.TenderCash(ctx, sess, decimal.RequireFromString("40.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, result.State)
	require.NotNil(t, result.Sale)
	assert.Equal(t, "TX-0042", result.Sale.TransactionNumber)
	require.NotNil(t, result.ChangeDue)
	assert.Equal(t, "6.10", result.ChangeDue.StringFixed(2))
	require.NotNil(t, result.Snapshot)
	assert.Len(t, result.Snapshot.Lines, 1)

	assert.True(t, sess.Snapshot().IsEmpty(), "completion must clear the cart")
	assert.Equal(t, 1, stub.callCount())
}

func TestTenderBelowTotalIsBlocked(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "10.00", 3)

	_, err := svc.Begin(ctx, sess)
	require.NoError(t, err)
	_, err = svc.SelectMethod(ctx, sess, enums.PaymentMethodCash)
	require.NoError(t, err)

	_, err = svc.TenderCash(ctx, sess, decimal.RequireFromString("33.89"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 0, stub.callCount(), "no sale request below the total")

	// Exact tender clears with zero change.
	result, err := svc.TenderCash(ctx, sess, decimal.RequireFromString("33.90"))
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, result.State)
	assert.True(t, result.ChangeDue.IsZero())
}

func TestCardCheckoutFinalizesImmediately(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "25.00", 1)

	_, err := svc.Begin(ctx, sess)
	require.NoError(t, err)

	result, err := svc.SelectMethod(ctx, sess, enums.PaymentMethodCard)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, result.State)
	assert.Nil(t, result.AmountTendered)
	assert.Equal(t, 1, stub.callCount())
}

func TestFailureLeavesCartIntactAndAllowsRetry(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{failure: pkgerrors.New(pkgerrors.CodeRequestFailed, "sale backend unavailable")}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "10.00", 2)

	_, err := svc.Begin(ctx, sess)
	require.NoError(t, err)

	_, err = svc.SelectMethod(ctx, sess, enums.PaymentMethodCard)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeRequestFailed))

	live := sess.Snapshot()
	require.Len(t, live.Lines, 1, "failure must not lose the cart")
	assert.Equal(t, 2, live.Lines[0].Quantity)

	status, err := svc.Status(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateFailed, status.State)

	// Retry straight from method selection succeeds once the backend is up.
	stub.failure = nil
	result, err := svc.SelectMethod(ctx, sess, enums.PaymentMethodCard)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateCompleted, result.State)
}

func TestDuplicateFinalizeIsRejectedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{block: make(chan struct{})}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "10.00", 1)

	_, err := svc.Begin(ctx, sess)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SelectMethod(ctx, sess, enums.PaymentMethodCard)
		done <- err
	}()

	require.Eventually(t, func() bool {
		status, err := svc.Status(ctx, sess)
		return err == nil && status.State == enums.CheckoutStateFinalizing
	}, time.Second, 5*time.Millisecond)

	_, err = svc.SelectMethod(ctx, sess, enums.PaymentMethodCard)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Cancel(ctx, sess)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	close(stub.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, stub.callCount(), "exactly one create-sale request per attempt")
}

func TestCancelReturnsToBuildingWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	stub := &stubSales{}
	svc, sess := newMachine(t, stub)
	fillCart(t, sess, "10.00", 1)

	_, err := svc.Begin(ctx, sess)
	require.NoError(t, err)
	_, err = svc.SelectMethod(ctx, sess, enums.PaymentMethodCash)
	require.NoError(t, err)

	status, err := svc.Cancel(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStateBuilding, status.State)
	assert.Equal(t, 0, stub.callCount())
	assert.Len(t, sess.Snapshot().Lines, 1, "cancel must not touch the cart")
}
