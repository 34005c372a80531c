package stock

import (
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"

	"github.com/tillpoint/pos-engine/internal/catalog"
)

// CanIncrement reports whether one more unit of the product may enter the
// cart given the quantity already there. Decrements and removals are never
// guarded.
func CanIncrement(product catalog.Product, currentQuantityInCart int) bool {
	return currentQuantityInCart < product.QuantityOnHand
}

// GuardIncrement rejects the increment with a stock-exceeded error when the
// cart already holds everything the catalog has on hand. The caller leaves
// the cart unchanged on rejection.
func GuardIncrement(product catalog.Product, currentQuantityInCart int) error {
	if CanIncrement(product, currentQuantityInCart) {
		return nil
	}
	return exceeded(product, currentQuantityInCart)
}

// GuardQuantity rejects a target quantity that exceeds the product's on-hand
// count. It is the bulk form of GuardIncrement used for multi-unit deltas.
func GuardQuantity(product catalog.Product, requestedQuantity int) error {
	if requestedQuantity <= product.QuantityOnHand {
		return nil
	}
	return exceeded(product, requestedQuantity)
}

func exceeded(product catalog.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeStockExceeded, "quantity on hand reached").WithDetails(map[string]any{
		"product_id":       product.ID.String(),
		"sku":              product.SKU,
		"quantity_on_hand": product.QuantityOnHand,
		"quantity_in_cart": requested,
	})
}
