package holds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/catalog"
	"github.com/tillpoint/pos-engine/internal/register"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

func testProduct(name string, price string) catalog.Product {
	return catalog.Product{
		ID:             uuid.New(),
		Name:           name,
		SKU:            "SKU-" + name,
		UnitPrice:      decimal.RequireFromString(price),
		QuantityOnHand: 50,
	}
}

func testSession(t *testing.T) *register.Session {
	t.Helper()
	manager := register.NewManager(nil, nil)
	return manager.Session(context.Background(), "reg-1")
}

func TestHoldRejectsEmptyCart(t *testing.T) {
	svc := NewService(context.Background(), nil, nil)
	sess := testSession(t)

	_, err := svc.Hold(context.Background(), sess, "lunch break")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, svc.List(context.Background()))
}

func TestHoldResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ctx, nil, nil)
	sess := testSession(t)

	product := testProduct("espresso", "3.50")
	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(product)
	}))

	held, err := svc.Hold(ctx, sess, "customer stepped out")
	require.NoError(t, err)
	assert.Equal(t, "customer stepped out", held.Note)
	assert.True(t, sess.Snapshot().IsEmpty(), "hold must clear the live cart")

	entries := svc.List(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, held.ID, entries[0].ID)

	resumed, err := svc.Resume(ctx, sess, held.ID)
	require.NoError(t, err)
	assert.Equal(t, held.ID, resumed.ID)

	live := sess.Snapshot()
	require.Len(t, live.Lines, 1)
	assert.Equal(t, product.ID, live.Lines[0].ProductID)
	assert.Equal(t, 1, live.Lines[0].Quantity)
	assert.Equal(t, held.ID.String(), live.HoldID)

	assert.Empty(t, svc.List(ctx), "resumed holds must leave the registry")

	_, err = svc.Resume(ctx, sess, held.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestResumeAutoHoldsLiveCart(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ctx, nil, nil)
	sess := testSession(t)

	first := testProduct("latte", "4.25")
	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(first)
	}))
	held, err := svc.Hold(ctx, sess, "")
	require.NoError(t, err)

	second := testProduct("muffin", "2.75")
	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(second)
	}))

	_, err = svc.Resume(ctx, sess, held.ID)
	require.NoError(t, err)

	live := sess.Snapshot()
	require.Len(t, live.Lines, 1)
	assert.Equal(t, first.ID, live.Lines[0].ProductID)

	entries := svc.List(ctx)
	require.Len(t, entries, 1, "the in-progress cart must be auto-held")
	assert.Equal(t, AutoHoldNote, entries[0].Note)
	require.Len(t, entries[0].Cart.Lines, 1)
	assert.Equal(t, second.ID, entries[0].Cart.Lines[0].ProductID)
}

func TestConcurrentResumeClaimsHoldOnce(t *testing.T) {
	ctx := context.Background()
	manager := register.NewManager(nil, nil)

	for i := 0; i < 100; i++ {
		svc := NewService(ctx, nil, nil)
		seed := manager.Session(ctx, "reg-seed")
		require.NoError(t, seed.Mutate(ctx, func(c *cart.Cart) error {
			return c.AddItem(testProduct("espresso", "3.50"))
		}))
		held, err := svc.Hold(ctx, seed, "")
		require.NoError(t, err)

		sessions := []*register.Session{
			manager.Session(ctx, "reg-a"),
			manager.Session(ctx, "reg-b"),
		}
		start := make(chan struct{})
		results := make(chan error, len(sessions))
		for _, sess := range sessions {
			go func(sess *register.Session) {
				<-start
				_, err := svc.Resume(ctx, sess, held.ID)
				results <- err
			}(sess)
		}
		close(start)

		var succeeded int
		for range sessions {
			if err := <-results; err == nil {
				succeeded++
			} else {
				assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
			}
		}
		require.Equal(t, 1, succeeded, "exactly one register may claim a hold")
		assert.Empty(t, svc.List(ctx))

		for _, sess := range sessions {
			require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
				c.Clear()
				return nil
			}))
		}
	}
}

func TestRemoveDiscardsHold(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ctx, nil, nil)
	sess := testSession(t)

	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(testProduct("scone", "3.00"))
	}))
	held, err := svc.Hold(ctx, sess, "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, held.ID))
	assert.Empty(t, svc.List(ctx))

	err = svc.Remove(ctx, held.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = svc.Remove(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestHeldSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(ctx, nil, nil)
	sess := testSession(t)

	product := testProduct("americano", "3.25")
	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(product)
	}))
	held, err := svc.Hold(ctx, sess, "")
	require.NoError(t, err)

	require.NoError(t, sess.Mutate(ctx, func(c *cart.Cart) error {
		return c.AddItem(testProduct("bagel", "2.00"))
	}))

	entries := svc.List(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, held.ID, entries[0].ID)
	require.Len(t, entries[0].Cart.Lines, 1)
	assert.Equal(t, product.ID, entries[0].Cart.Lines[0].ProductID)
}
