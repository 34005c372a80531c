package holds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/migrate"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()

	client, err := db.New(ctx, config.DBConfig{DSN: ":memory:"}, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, migrate.Run(ctx, client))

	repo, err := NewRepository(client)
	require.NoError(t, err)
	return repo
}

func TestRepositorySaveAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	snapshot := cart.New()
	require.NoError(t, snapshot.AddItem(testProduct("espresso", "3.50")))
	snapshot.SetNotes("back in five")

	held := HeldTransaction{
		ID:     uuid.New(),
		Cart:   snapshot,
		HeldAt: now,
		Note:   "lunch break",
	}
	require.NoError(t, repo.Save(ctx, held))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, held.ID, listed[0].ID)
	assert.Equal(t, "lunch break", listed[0].Note)
	require.Len(t, listed[0].Cart.Lines, 1)
	assert.Equal(t, "back in five", listed[0].Cart.Notes)
	assert.Equal(t, 1, listed[0].Cart.Lines[0].Quantity)
}

func TestRepositoryListOrdersByHeldAt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	later := cart.New()
	require.NoError(t, later.AddItem(testProduct("croissant", "4.25")))
	earlier := cart.New()
	require.NoError(t, earlier.AddItem(testProduct("espresso", "3.50")))

	laterID, earlierID := uuid.New(), uuid.New()
	require.NoError(t, repo.Save(ctx, HeldTransaction{ID: laterID, Cart: later, HeldAt: now}))
	require.NoError(t, repo.Save(ctx, HeldTransaction{ID: earlierID, Cart: earlier, HeldAt: now.Add(-time.Hour)}))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, earlierID, listed[0].ID)
	assert.Equal(t, laterID, listed[1].ID)
}

func TestRepositoryDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snapshot := cart.New()
	require.NoError(t, snapshot.AddItem(testProduct("espresso", "3.50")))

	held := HeldTransaction{ID: uuid.New(), Cart: snapshot, HeldAt: time.Now().UTC()}
	require.NoError(t, repo.Save(ctx, held))
	require.NoError(t, repo.Delete(ctx, held.ID))

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
