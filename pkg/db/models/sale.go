package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/enums"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// Sale is the locally cached record of a completed transaction. The sale
// backend is the source of truth; rows here back offline receipt lookups.
type Sale struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionNumber string              `gorm:"column:transaction_number;not null;uniqueIndex"`
	Customer          *types.Customer     `gorm:"column:customer;serializer:json"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax               decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;not null"`
	AmountTendered    *decimal.Decimal    `gorm:"column:amount_tendered;type:numeric(12,2)"`
	ChangeDue         *decimal.Decimal    `gorm:"column:change_due;type:numeric(12,2)"`
	Status            enums.SaleStatus    `gorm:"column:status;not null;default:'completed'"`
	VoidReason        *string             `gorm:"column:void_reason"`
	VoidedAt          *time.Time          `gorm:"column:voided_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	Lines             []SaleLineItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleLineItem is the immutable item snapshot attached to a sale.
type SaleLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	SKU       string          `gorm:"column:sku;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}
