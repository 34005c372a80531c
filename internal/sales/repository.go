package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/pos-engine/pkg/backend"
	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/db/models"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

type gormRepository struct {
	client *db.Client
}

// NewRepository builds the database-backed sale cache.
func NewRepository(client *db.Client) (Repository, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales repository requires a db client")
	}
	return &gormRepository{client: client}, nil
}

func (r *gormRepository) Save(ctx context.Context, sale backend.Sale) error {
	row := toModel(sale)
	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
		// Line snapshots are immutable; rewrite them wholesale on upsert.
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleLineItem{}).Error; err != nil {
			return err
		}
		lines := toModelLines(sale)
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to cache sale")
	}
	return nil
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*backend.Sale, error) {
	var row models.Sale
	err := r.client.DB().
		WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load sale")
	}
	sale := fromModel(row)
	return &sale, nil
}

func toModel(sale backend.Sale) models.Sale {
	row := models.Sale{
		ID:                sale.ID,
		TransactionNumber: sale.TransactionNumber,
		Customer:          sale.Customer,
		Subtotal:          sale.Subtotal,
		Discount:          sale.Discount,
		Tax:               sale.Tax,
		Total:             sale.Total,
		PaymentMethod:     sale.PaymentMethod,
		AmountTendered:    sale.AmountTendered,
		ChangeDue:         sale.ChangeDue,
		Status:            sale.Status,
		VoidReason:        sale.VoidReason,
		CreatedAt:         sale.CreatedAt,
	}
	if sale.Status == enums.SaleStatusVoided {
		now := time.Now().UTC()
		row.VoidedAt = &now
	}
	return row
}

func toModelLines(sale backend.Sale) []models.SaleLineItem {
	lines := make([]models.SaleLineItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		lines = append(lines, models.SaleLineItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			SKU:       item.SKU,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return lines
}

func fromModel(row models.Sale) backend.Sale {
	sale := backend.Sale{
		ID:                row.ID,
		TransactionNumber: row.TransactionNumber,
		Customer:          row.Customer,
		Subtotal:          row.Subtotal,
		Discount:          row.Discount,
		Tax:               row.Tax,
		Total:             row.Total,
		PaymentMethod:     row.PaymentMethod,
		AmountTendered:    row.AmountTendered,
		ChangeDue:         row.ChangeDue,
		Status:            row.Status,
		VoidReason:        row.VoidReason,
		CreatedAt:         row.CreatedAt,
	}
	for _, line := range row.Lines {
		sale.Items = append(sale.Items, backend.SaleItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	return sale
}
