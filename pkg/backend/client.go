// Package backend is the REST client for the sale backend, the system of
// record for completed transactions. The engine never fabricates sale ids or
// transaction numbers; both come back from this service.
package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/enums"
	"github.com/tillpoint/pos-engine/pkg/pagination"
	"github.com/tillpoint/pos-engine/pkg/rest"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// SaleItem is one immutable line on a sale record.
type SaleItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Sale is the backend's sale record.
type Sale struct {
	ID                uuid.UUID           `json:"id"`
	TransactionNumber string              `json:"transaction_number"`
	Customer          *types.Customer     `json:"customer,omitempty"`
	Items             []SaleItem          `json:"items"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Discount          decimal.Decimal     `json:"discount"`
	Tax               decimal.Decimal     `json:"tax"`
	Total             decimal.Decimal     `json:"total"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	AmountTendered    *decimal.Decimal    `json:"amount_tendered,omitempty"`
	ChangeDue         *decimal.Decimal    `json:"change_due,omitempty"`
	Status            enums.SaleStatus    `json:"status"`
	VoidReason        *string             `json:"void_reason,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// CreateSaleItem is one requested line on a create-sale submission.
type CreateSaleItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// CreateSaleRequest is the create-sale submission payload.
type CreateSaleRequest struct {
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	Items          []CreateSaleItem    `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	Tax            decimal.Decimal     `json:"tax"`
	Total          decimal.Decimal     `json:"total"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	AmountTendered *decimal.Decimal    `json:"amount_tendered,omitempty"`
	Notes          string              `json:"notes,omitempty"`
}

// SalesPage is one page of sale records plus the cursor for the next one.
type SalesPage struct {
	Sales      []Sale `json:"sales"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Client talks to the sale backend.
type Client interface {
	CreateSale(ctx context.Context, req CreateSaleRequest) (*Sale, error)
	VoidSale(ctx context.Context, id uuid.UUID, reason string) (*Sale, error)
	ReturnSale(ctx context.Context, id uuid.UUID, reason string) (*Sale, error)
	ListSales(ctx context.Context, params pagination.Params) (*SalesPage, error)
}

type client struct {
	rest *rest.Client
}

// NewClient builds the sale backend client from configuration.
func NewClient(cfg config.SalesBackendConfig, opts ...rest.Option) (Client, error) {
	restClient, err := rest.New(cfg.BaseURL, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("sales backend client: %w", err)
	}
	return &client{rest: restClient}, nil
}

func (c *client) CreateSale(ctx context.Context, req CreateSaleRequest) (*Sale, error) {
	var sale Sale
	if err := c.rest.PostJSON(ctx, "/sales", req, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (c *client) VoidSale(ctx context.Context, id uuid.UUID, reason string) (*Sale, error) {
	return c.postReason(ctx, id, "void", reason)
}

func (c *client) ReturnSale(ctx context.Context, id uuid.UUID, reason string) (*Sale, error) {
	return c.postReason(ctx, id, "return", reason)
}

func (c *client) postReason(ctx context.Context, id uuid.UUID, action, reason string) (*Sale, error) {
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}

	var sale Sale
	path := "/sales/" + url.PathEscape(id.String()) + "/" + action
	if err := c.rest.PostJSON(ctx, path, body, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (c *client) ListSales(ctx context.Context, params pagination.Params) (*SalesPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pagination.NormalizeLimit(params.Limit)))
	if params.Cursor != "" {
		query.Set("cursor", params.Cursor)
	}

	var page SalesPage
	if err := c.rest.GetJSON(ctx, "/sales", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
