package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/rest"
)

// Service exposes the product catalog consumed by the cart engine.
type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

type client struct {
	rest *rest.Client
}

// NewClient builds the catalog client from configuration.
func NewClient(cfg config.CatalogConfig, opts ...rest.Option) (Service, error) {
	restClient, err := rest.New(cfg.BaseURL, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	return &client{rest: restClient}, nil
}

func (c *client) ListProducts(ctx context.Context) ([]Product, error) {
	var payload struct {
		Products []Product `json:"products"`
	}
	if err := c.rest.GetJSON(ctx, "/products", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

func (c *client) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	if err := c.rest.GetJSON(ctx, "/products/"+url.PathEscape(id.String()), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
