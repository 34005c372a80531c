package taxrules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/pos-engine/pkg/config"
	"github.com/tillpoint/pos-engine/pkg/rest"
)

// Provider lists the tax rules published by the external rule service.
type Provider interface {
	ListTaxRules(ctx context.Context) ([]TaxRule, error)
}

type client struct {
	rest *rest.Client
}

// NewClient builds the tax rule client from configuration.
func NewClient(cfg config.TaxRulesConfig, opts ...rest.Option) (Provider, error) {
	restClient, err := rest.New(cfg.BaseURL, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("taxrules client: %w", err)
	}
	return &client{rest: restClient}, nil
}

func (c *client) ListTaxRules(ctx context.Context) ([]TaxRule, error) {
	var payload struct {
		Rules []TaxRule `json:"rules"`
	}
	if err := c.rest.GetJSON(ctx, "/tax-rules", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Rules, nil
}

// Resolver caches the provider's rule set and answers rate lookups. A failed
// refresh falls back to the last good rule set so totals stay computable
// while the provider is down.
type Resolver struct {
	provider Provider
	ttl      time.Duration

	mu        sync.Mutex
	rules     []TaxRule
	fetchedAt time.Time
}

// NewResolver wraps a provider with in-memory caching.
func NewResolver(provider Provider, ttl time.Duration) (*Resolver, error) {
	if provider == nil {
		return nil, fmt.Errorf("tax rule provider required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{provider: provider, ttl: ttl}, nil
}

// RateFor resolves the applicable rate for the register region and line
// categories.
func (r *Resolver) RateFor(ctx context.Context, region string, categories []string) (decimal.Decimal, error) {
	rules, err := r.currentRules(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Resolve(rules, region, categories), nil
}

func (r *Resolver) currentRules(ctx context.Context) ([]TaxRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rules != nil && time.Since(r.fetchedAt) < r.ttl {
		return r.rules, nil
	}

	rules, err := r.provider.ListTaxRules(ctx)
	if err != nil {
		if r.rules != nil {
			return r.rules, nil
		}
		return nil, err
	}
	r.rules = rules
	r.fetchedAt = time.Now()
	return r.rules, nil
}
