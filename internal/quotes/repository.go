package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/db/models"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

type gormRepository struct {
	client *db.Client
}

// NewRepository builds the database-backed quote store.
func NewRepository(client *db.Client) (Repository, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quotes repository requires a db client")
	}
	return &gormRepository{client: client}, nil
}

func (r *gormRepository) Create(ctx context.Context, quote Quote) error {
	row := toModel(quote)
	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist quote")
	}
	return nil
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	var row models.Quote
	err := r.client.DB().
		WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load quote")
	}
	quote := fromModel(row)
	return &quote, nil
}

func (r *gormRepository) List(ctx context.Context) ([]Quote, error) {
	var rows []models.Quote
	err := r.client.DB().
		WithContext(ctx).
		Preload("Lines").
		Order("created_at desc").
		Find(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list quotes")
	}

	result := make([]Quote, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromModel(row))
	}
	return result, nil
}

func (r *gormRepository) MarkConverted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.client.DB().
		WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND converted_at IS NULL", id).
		Update("converted_at", at)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to mark quote converted")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has already been converted")
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteLineItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Quote{}).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete quote")
	}
	return nil
}

func toModel(quote Quote) models.Quote {
	row := models.Quote{
		ID:          quote.ID,
		Customer:    quote.Customer,
		Subtotal:    quote.Subtotal,
		Discount:    quote.Discount,
		Tax:         quote.Tax,
		Total:       quote.Total,
		Notes:       quote.Notes,
		CreatedAt:   quote.CreatedAt,
		ExpiresAt:   quote.ExpiresAt,
		ConvertedAt: quote.ConvertedAt,
	}
	for _, line := range quote.Lines {
		row.Lines = append(row.Lines, models.QuoteLineItem{
			ID:        uuid.New(),
			QuoteID:   quote.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			Category:  line.Category,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	return row
}

func fromModel(row models.Quote) Quote {
	quote := Quote{
		ID:          row.ID,
		Customer:    row.Customer,
		Subtotal:    row.Subtotal,
		Discount:    row.Discount,
		Tax:         row.Tax,
		Total:       row.Total,
		Notes:       row.Notes,
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
		ConvertedAt: row.ConvertedAt,
	}
	for _, line := range row.Lines {
		quote.Lines = append(quote.Lines, Line{
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			Category:  line.Category,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	return quote
}
