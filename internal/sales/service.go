// Package sales drives the sale lifecycle against the backend: creation at
// checkout, and void/return against previously completed sales. The backend
// owns the records; nothing here reports success without its confirmation.
package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/pricing"
	"github.com/tillpoint/pos-engine/pkg/backend"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
	"github.com/tillpoint/pos-engine/pkg/metrics"
	"github.com/tillpoint/pos-engine/pkg/pagination"
)

// Repository is the optional local read cache of sale records.
type Repository interface {
	Save(ctx context.Context, sale backend.Sale) error
	Get(ctx context.Context, id uuid.UUID) (*backend.Sale, error)
}

// Service is the sale lifecycle manager.
type Service interface {
	CreateSale(ctx context.Context, snapshot *cart.Cart, totals pricing.Totals, method enums.PaymentMethod, tendered *decimal.Decimal) (*backend.Sale, error)
	VoidSale(ctx context.Context, id uuid.UUID, reason string) (*backend.Sale, error)
	ProcessReturn(ctx context.Context, id uuid.UUID, reason string) (*backend.Sale, error)
	ListSales(ctx context.Context, params pagination.Params) (*backend.SalesPage, error)
	GetSale(ctx context.Context, id uuid.UUID) (*backend.Sale, error)
}

type service struct {
	backend backend.Client
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewService builds the sale lifecycle manager. repo and metrics may be nil.
func NewService(client backend.Client, repo Repository, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales service requires a backend client")
	}
	return &service{backend: client, repo: repo, logg: logg, metrics: m}, nil
}

// CreateSale submits the cart snapshot to the backend. The snapshot is
// frozen by the caller before submission, so cart mutations made while the
// request is in flight cannot leak into it.
func (s *service) CreateSale(ctx context.Context, snapshot *cart.Cart, totals pricing.Totals, method enums.PaymentMethod, tendered *decimal.Decimal) (*backend.Sale, error) {
	if snapshot == nil || snapshot.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot create a sale from an empty cart")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if method == enums.PaymentMethodCash {
		if tendered == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash sales require an amount tendered")
		}
		if tendered.LessThan(totals.Total) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount tendered is less than the total")
		}
	}

	req := backend.CreateSaleRequest{
		Items:          requestItems(snapshot),
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		Tax:            totals.Tax,
		Total:          totals.Total,
		PaymentMethod:  method,
		AmountTendered: tendered,
		Notes:          snapshot.Notes,
	}
	if snapshot.Customer != nil {
		id := snapshot.Customer.ID
		req.CustomerID = &id
	}

	start := time.Now()
	sale, err := s.backend.CreateSale(ctx, req)
	s.metrics.ObserveSaleRequest("create", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.cache(ctx, sale)
	return sale, nil
}

// VoidSale voids a completed sale. The reason is mandatory and checked
// locally before any request goes out.
func (s *service) VoidSale(ctx context.Context, id uuid.UUID, reason string) (*backend.Sale, error) {
	return s.reverse(ctx, id, reason, "void", s.backend.VoidSale)
}

// ProcessReturn runs the return workflow against a completed sale under the
// same reason contract as void.
func (s *service) ProcessReturn(ctx context.Context, id uuid.UUID, reason string) (*backend.Sale, error) {
	return s.reverse(ctx, id, reason, "return", s.backend.ReturnSale)
}

func (s *service) reverse(ctx context.Context, id uuid.UUID, reason, operation string, call func(context.Context, uuid.UUID, string) (*backend.Sale, error)) (*backend.Sale, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}

	if cached, err := s.lookup(ctx, id); err == nil && cached != nil {
		if cached.Status != enums.SaleStatusCompleted {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not in the completed state")
		}
	}

	start := time.Now()
	sale, err := call(ctx, id, trimmed)
	s.metrics.ObserveSaleRequest(operation, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.cache(ctx, sale)
	return sale, nil
}

// ListSales proxies the backend's sale history with cursor pagination.
func (s *service) ListSales(ctx context.Context, params pagination.Params) (*backend.SalesPage, error) {
	return s.backend.ListSales(ctx, params)
}

// GetSale serves a sale from the local cache.
func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*backend.Sale, error) {
	if s.repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) lookup(ctx context.Context, id uuid.UUID) (*backend.Sale, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Get(ctx, id)
}

func (s *service) cache(ctx context.Context, sale *backend.Sale) {
	if s.repo == nil || sale == nil {
		return
	}
	if err := s.repo.Save(ctx, *sale); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithSaleID(ctx, sale.ID.String()), "sale cache save failed")
	}
}

func requestItems(snapshot *cart.Cart) []backend.CreateSaleItem {
	items := make([]backend.CreateSaleItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, backend.CreateSaleItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			UnitPrice: line.EffectiveUnitPrice(),
			Quantity:  line.Quantity,
		})
	}
	return items
}
