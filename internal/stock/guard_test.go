package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/pos-engine/internal/catalog"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

func TestCanIncrement(t *testing.T) {
	product := catalog.Product{ID: uuid.New(), SKU: "SKU-1", QuantityOnHand: 3}

	tests := []struct {
		name    string
		inCart  int
		allowed bool
	}{
		{name: "empty cart", inCart: 0, allowed: true},
		{name: "below on-hand", inCart: 2, allowed: true},
		{name: "at on-hand", inCart: 3, allowed: false},
		{name: "above on-hand", inCart: 5, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.allowed, CanIncrement(product, tt.inCart))
		})
	}
}

func TestGuardIncrementZeroOnHand(t *testing.T) {
	product := catalog.Product{ID: uuid.New(), QuantityOnHand: 0}
	err := GuardIncrement(product, 0)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStockExceeded))
}

func TestGuardIncrementAllows(t *testing.T) {
	product := catalog.Product{ID: uuid.New(), QuantityOnHand: 1}
	require.NoError(t, GuardIncrement(product, 0))
}
