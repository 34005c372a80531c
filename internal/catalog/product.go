package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the read-only catalog entry the engine sells from. Inventory
// counts and pricing are owned by the external catalog service; the engine
// only consumes them.
type Product struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	SKU            string            `json:"sku"`
	UnitPrice      decimal.Decimal   `json:"unitPrice"`
	QuantityOnHand int               `json:"quantityOnHand"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Category       string            `json:"category"`
}
