package quotes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

type stubRepo struct {
	quotes  map[uuid.UUID]Quote
	markErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{quotes: make(map[uuid.UUID]Quote)}
}

func (r *stubRepo) Create(_ context.Context, quote Quote) error {
	r.quotes[quote.ID] = quote
	return nil
}

func (r *stubRepo) Get(_ context.Context, id uuid.UUID) (*Quote, error) {
	quote, ok := r.quotes[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	return &quote, nil
}

func (r *stubRepo) List(_ context.Context) ([]Quote, error) {
	result := make([]Quote, 0, len(r.quotes))
	for _, quote := range r.quotes {
		result = append(result, quote)
	}
	return result, nil
}

func (r *stubRepo) MarkConverted(_ context.Context, id uuid.UUID, at time.Time) error {
	if r.markErr != nil {
		return r.markErr
	}
	quote, ok := r.quotes[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	if quote.ConvertedAt != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has already been converted")
	}
	quote.ConvertedAt = &at
	r.quotes[id] = quote
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.quotes, id)
	return nil
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) RateFor(context.Context, string, []string) (decimal.Decimal, error) {
	return f.rate, nil
}

func testSession(t *testing.T) *register.Session {
	t.Helper()
	return register.NewManager(nil, nil).Session(context.Background(), "reg-1")
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(repo, fixedRate{rate: decimal.RequireFromString("0.13")}, "on", 7*24*time.Hour)
	require.NoError(t, err)
	return svc.(*service)
}

func addProduct(t *testing.T, sess *register.Session, name, price string, qty int) catalog.Product {
	t.Helper()
	product := catalog.Product{
		ID:             uuid.New(),
		Name:           name,
		SKU:            "SKU-" + name,
		UnitPrice:      decimal.RequireFromString(price),
		QuantityOnHand: 100,
	}
	require.NoError(t, sess.Mutate(context.Background(), func(c *cart.Cart) error {
		if err := c.AddItem(product); err != nil {
			return err
		}
		return c.UpdateQuantity(product, qty-1)
	}))
	return product
}

func TestSaveAsQuoteSnapshotsTotalsAndClearsCart(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	product := addProduct(t, sess, "widget", "10.00", 3)

	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, "30", quote.Subtotal.String())
	assert.Equal(t, "3.9", quote.Tax.String())
	assert.Equal(t, "33.9", quote.Total.String())
	assert.Equal(t, enums.QuoteStatusPending, quote.Status)
	assert.Equal(t, quote.CreatedAt.Add(7*24*time.Hour), quote.ExpiresAt)
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, product.ID, quote.Lines[0].ProductID)
	assert.Equal(t, 3, quote.Lines[0].Quantity)

	assert.True(t, sess.Snapshot().IsEmpty(), "saving a quote must clear the live cart")
	assert.Len(t, repo.quotes, 1)
}

func TestSaveAsQuoteRejectsEmptyCart(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	sess := testSession(t)

	_, err := svc.SaveAsQuote(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListDerivesStatusFromClock(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	addProduct(t, sess, "widget", "10.00", 1)
	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	listed, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, enums.QuoteStatusPending, listed[0].Status)

	svc.now = func() time.Time { return quote.ExpiresAt.Add(time.Minute) }
	listed, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusExpired, listed[0].Status)
}

func TestConvertHydratesCartWithQuotedPrices(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	product := addProduct(t, sess, "widget", "10.00", 2)
	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	converted, err := svc.Convert(ctx, sess, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusConverted, converted.Status)
	require.NotNil(t, converted.ConvertedAt)

	live := sess.Snapshot()
	require.Len(t, live.Lines, 1)
	assert.Equal(t, product.ID, live.Lines[0].ProductID)
	assert.Equal(t, 2, live.Lines[0].Quantity)
	require.NotNil(t, live.Lines[0].PriceOverride)
	assert.Equal(t, "10", live.Lines[0].PriceOverride.String())

	_, err = svc.Convert(ctx, sess, quote.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "conversion is terminal")
}

func TestConvertFailureLeavesLiveCartIntact(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	addProduct(t, sess, "widget", "10.00", 1)
	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	// A new sale is in progress when the conversion is attempted.
	inProgress := addProduct(t, sess, "gadget", "4.00", 2)

	repo.markErr = pkgerrors.New(pkgerrors.CodeInternal, "storage unavailable")
	_, err = svc.Convert(ctx, sess, quote.ID)
	require.Error(t, err)

	live := sess.Snapshot()
	require.Len(t, live.Lines, 1)
	assert.Equal(t, inProgress.ID, live.Lines[0].ProductID, "a failed conversion must not replace the live cart")
	assert.Equal(t, 2, live.Lines[0].Quantity)
}

func TestConvertRejectsExpiredQuote(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	addProduct(t, sess, "widget", "10.00", 1)
	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	svc.now = func() time.Time { return quote.ExpiresAt.Add(time.Second) }
	_, err = svc.Convert(ctx, sess, quote.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeExpired))
}

func TestDeleteRemovesRegardlessOfStatus(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	sess := testSession(t)

	addProduct(t, sess, "widget", "10.00", 1)
	quote, err := svc.SaveAsQuote(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, quote.ID))
	_, err = svc.Get(ctx, quote.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
