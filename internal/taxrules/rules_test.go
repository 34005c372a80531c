package taxrules

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestResolvePicksHighestPriorityMatch(t *testing.T) {
	rules := []TaxRule{
		{ID: "base", Rate: rate("0.05"), Priority: 0},
		{ID: "provincial", Rate: rate("0.13"), Region: "on", Priority: 10},
		{ID: "grocery-exempt", Rate: rate("0"), Region: "on", Category: "groceries", Priority: 20},
	}

	cases := []struct {
		name       string
		region     string
		categories []string
		expected   string
	}{
		{name: "category rule wins", region: "on", categories: []string{"groceries"}, expected: "0"},
		{name: "region rule", region: "on", categories: []string{"beverages"}, expected: "0.13"},
		{name: "fallback to unscoped rule", region: "bc", categories: nil, expected: "0.05"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(rules, tc.region, tc.categories)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestResolveNoMatchIsZero(t *testing.T) {
	rules := []TaxRule{
		{ID: "provincial", Rate: rate("0.13"), Region: "on", Priority: 10},
	}
	assert.True(t, Resolve(rules, "bc", nil).IsZero())
	assert.True(t, Resolve(nil, "on", nil).IsZero())
}

func TestRuleMatchesScope(t *testing.T) {
	unscoped := TaxRule{}
	assert.True(t, unscoped.Matches("anywhere", nil))

	scoped := TaxRule{Region: "on", Category: "beverages"}
	assert.True(t, scoped.Matches("on", []string{"beverages", "snacks"}))
	assert.False(t, scoped.Matches("on", []string{"snacks"}))
	assert.False(t, scoped.Matches("bc", []string{"beverages"}))
}

type scriptedProvider struct {
	rules []TaxRule
	errs  []error
	calls int
}

func (p *scriptedProvider) ListTaxRules(context.Context) ([]TaxRule, error) {
	defer func() { p.calls++ }()
	if p.calls < len(p.errs) && p.errs[p.calls] != nil {
		return nil, p.errs[p.calls]
	}
	return p.rules, nil
}

func TestResolverCachesRules(t *testing.T) {
	provider := &scriptedProvider{
		rules: []TaxRule{{ID: "base", Rate: rate("0.07")}},
	}
	resolver, err := NewResolver(provider, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := resolver.RateFor(context.Background(), "on", nil)
		require.NoError(t, err)
		assert.Equal(t, "0.07", got.String())
	}
	assert.Equal(t, 1, provider.calls, "rules are served from cache inside the ttl")
}

func TestResolverFallsBackToLastGoodRules(t *testing.T) {
	provider := &scriptedProvider{
		rules: []TaxRule{{ID: "base", Rate: rate("0.07")}},
		errs:  []error{nil, assert.AnError},
	}
	resolver, err := NewResolver(provider, time.Nanosecond)
	require.NoError(t, err)

	got, err := resolver.RateFor(context.Background(), "on", nil)
	require.NoError(t, err)
	assert.Equal(t, "0.07", got.String())

	time.Sleep(time.Millisecond)

	got, err = resolver.RateFor(context.Background(), "on", nil)
	require.NoError(t, err, "a failed refresh must fall back to the last good rule set")
	assert.Equal(t, "0.07", got.String())
}

func TestResolverSurfacesErrorWithoutCache(t *testing.T) {
	provider := &scriptedProvider{errs: []error{assert.AnError}}
	resolver, err := NewResolver(provider, time.Hour)
	require.NoError(t, err)

	_, err = resolver.RateFor(context.Background(), "on", nil)
	assert.Error(t, err)
}
