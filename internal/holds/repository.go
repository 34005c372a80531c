package holds

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/pkg/db"
	"github.com/tillpoint/pos-engine/pkg/db/models"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
)

type gormRepository struct {
	client *db.Client
}

// NewRepository builds the database-backed hold cache.
func NewRepository(client *db.Client) (Repository, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "holds repository requires a db client")
	}
	return &gormRepository{client: client}, nil
}

func (r *gormRepository) Save(ctx context.Context, held HeldTransaction) error {
	payload, err := json.Marshal(held.Cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode held cart")
	}

	row := models.HeldTransaction{
		ID:      held.ID,
		Note:    held.Note,
		HeldAt:  held.HeldAt,
		Payload: string(payload),
	}
	if err := r.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist held transaction")
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.client.DB().
		WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.HeldTransaction{}).
		Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete held transaction")
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context) ([]HeldTransaction, error) {
	var rows []models.HeldTransaction
	err := r.client.DB().
		WithContext(ctx).
		Order("held_at asc").
		Find(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list held transactions")
	}

	result := make([]HeldTransaction, 0, len(rows))
	for _, row := range rows {
		var snapshot cart.Cart
		if err := json.Unmarshal([]byte(row.Payload), &snapshot); err != nil {
			continue
		}
		result = append(result, HeldTransaction{
			ID:     row.ID,
			Cart:   &snapshot,
			HeldAt: row.HeldAt,
			Note:   row.Note,
		})
	}
	return result, nil
}
