package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/types"
)

// Quote is a priced, expirable snapshot of a prospective sale. Pending and
// expired status is derived from ExpiresAt at read time; only the terminal
// conversion is recorded here.
type Quote struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Customer    *types.Customer `gorm:"column:customer;serializer:json"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount    decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax         decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Notes       string          `gorm:"column:notes"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null"`
	ExpiresAt   time.Time       `gorm:"column:expires_at;not null"`
	ConvertedAt *time.Time      `gorm:"column:converted_at"`
	Lines       []QuoteLineItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

// QuoteLineItem is a denormalized item snapshot: name, sku and price are
// copied at quote time, never resolved against the live catalog.
type QuoteLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	QuoteID   uuid.UUID       `gorm:"column:quote_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	Category  string          `gorm:"column:category"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
}
