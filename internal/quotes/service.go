// Package quotes stores priced, expirable snapshots of a prospective sale
// and converts them back into a live cart while they are still pending.
package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/internal/cart"
	"github.com/tillpoint/pos-engine/internal/pricing"
	"github.com/tillpoint/pos-engine/internal/register"
	"github.com/tillpoint/pos-engine/pkg/enums"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/types"
)

// Line is the denormalized item snapshot carried by a quote. Name, sku and
// the quoted unit price are frozen at save time.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Quote is a saved snapshot. Status is derived from ExpiresAt and
// ConvertedAt at read time, never trusted from storage.
type Quote struct {
	ID          uuid.UUID         `json:"id"`
	Customer    *types.Customer   `json:"customer,omitempty"`
	Lines       []Line            `json:"lines"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	Discount    decimal.Decimal   `json:"discount"`
	Tax         decimal.Decimal   `json:"tax"`
	Total       decimal.Decimal   `json:"total"`
	Notes       string            `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	ConvertedAt *time.Time        `json:"converted_at,omitempty"`
	Status      enums.QuoteStatus `json:"status"`
}

// StatusAt derives the quote's status at the given instant.
func (q Quote) StatusAt(now time.Time) enums.QuoteStatus {
	if q.ConvertedAt != nil {
		return enums.QuoteStatusConverted
	}
	if now.After(q.ExpiresAt) {
		return enums.QuoteStatusExpired
	}
	return enums.QuoteStatusPending
}

// Repository is the persistent quote store.
type Repository interface {
	Create(ctx context.Context, quote Quote) error
	Get(ctx context.Context, id uuid.UUID) (*Quote, error)
	List(ctx context.Context) ([]Quote, error)
	MarkConverted(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service saves, lists, converts and deletes quotes.
type Service interface {
	SaveAsQuote(ctx context.Context, sess *register.Session) (*Quote, error)
	List(ctx context.Context) ([]Quote, error)
	Get(ctx context.Context, id uuid.UUID) (*Quote, error)
	Convert(ctx context.Context, sess *register.Session, id uuid.UUID) (*Quote, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   Repository
	rates  register.RateResolver
	region string
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds the quote store. ttl is the pending window; zero falls
// back to seven days.
func NewService(repo Repository, rates register.RateResolver, region string, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quotes service requires a repository")
	}
	if rates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quotes service requires a rate resolver")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &service{
		repo:   repo,
		rates:  rates,
		region: region,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// SaveAsQuote snapshots the live cart with its current totals, stamps the
// expiry window, persists the quote and clears the cart. An empty cart is
// rejected.
func (s *service) SaveAsQuote(ctx context.Context, sess *register.Session) (*Quote, error) {
	var saved *Quote
	err := sess.Mutate(ctx, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot quote an empty cart")
		}

		rate, err := s.rates.RateFor(ctx, s.region, categorySet(c))
		if err != nil {
			return err
		}
		totals := pricing.Compute(c, rate)

		now := s.now()
		quote := Quote{
			ID:        uuid.New(),
			Lines:     snapshotLines(c),
			Subtotal:  totals.Subtotal,
			Discount:  totals.Discount,
			Tax:       totals.Tax,
			Total:     totals.Total,
			Notes:     c.Notes,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
			Status:    enums.QuoteStatusPending,
		}
		if c.Customer != nil {
			customer := *c.Customer
			quote.Customer = &customer
		}

		if err := s.repo.Create(ctx, quote); err != nil {
			return err
		}
		saved = &quote
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// List returns every stored quote with its status re-derived against the
// clock.
func (s *service) List(ctx context.Context) ([]Quote, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range stored {
		stored[i].Status = stored[i].StatusAt(now)
	}
	return stored, nil
}

// Get returns one quote with a freshly derived status.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	quote, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Status = quote.StatusAt(s.now())
	return quote, nil
}

// Convert hydrates the quote's snapshot into the register's live cart and
// marks the quote converted. Only pending quotes convert; conversion is
// terminal. The quoted unit price rides along as a price override so later
// catalog changes never reprice the converted cart.
func (s *service) Convert(ctx context.Context, sess *register.Session, id uuid.UUID) (*Quote, error) {
	quote, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch quote.StatusAt(s.now()) {
	case enums.QuoteStatusConverted:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quote has already been converted")
	case enums.QuoteStatusExpired:
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "quote has expired")
	}

	// Mark first: the conditional update is the terminality guard, and the
	// live cart must stay untouched when marking fails or a concurrent
	// conversion wins.
	at := s.now()
	if err := s.repo.MarkConverted(ctx, id, at); err != nil {
		return nil, err
	}

	err = sess.Mutate(ctx, func(c *cart.Cart) error {
		hydrated := cart.New()
		for _, line := range quote.Lines {
			quoted := line.UnitPrice
			hydrated.Lines = append(hydrated.Lines, cart.Line{
				ProductID:     line.ProductID,
				Name:          line.Name,
				SKU:           line.SKU,
				Category:      line.Category,
				UnitPrice:     quoted,
				Quantity:      line.Quantity,
				PriceOverride: &quoted,
			})
		}
		if quote.Customer != nil {
			customer := *quote.Customer
			hydrated.Customer = &customer
		}
		hydrated.Notes = quote.Notes
		c.Restore(hydrated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	quote.ConvertedAt = &at
	quote.Status = enums.QuoteStatusConverted
	return quote, nil
}

// Delete removes the quote regardless of status.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func snapshotLines(c *cart.Cart) []Line {
	lines := make([]Line, 0, len(c.Lines))
	for _, item := range c.Lines {
		lines = append(lines, Line{
			ProductID: item.ProductID,
			Name:      item.Name,
			SKU:       item.SKU,
			Category:  item.Category,
			UnitPrice: item.EffectiveUnitPrice(),
			Quantity:  item.Quantity,
		})
	}
	return lines
}

func categorySet(c *cart.Cart) []string {
	seen := make(map[string]struct{}, len(c.Lines))
	categories := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		if line.Category == "" {
			continue
		}
		if _, ok := seen[line.Category]; ok {
			continue
		}
		seen[line.Category] = struct{}{}
		categories = append(categories, line.Category)
	}
	return categories
}
