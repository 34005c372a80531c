package taxrules

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TaxRule scopes a percentage rate to a region and/or category. Empty scope
// fields match everything. Rate is fractional (0.13 for 13%).
type TaxRule struct {
	ID       string          `json:"id"`
	Rate     decimal.Decimal `json:"rate"`
	Region   string          `json:"region,omitempty"`
	Category string          `json:"category,omitempty"`
	Priority int             `json:"priority"`
}

// Matches reports whether the rule applies to the register's region and any
// of the cart's line categories.
func (r TaxRule) Matches(region string, categories []string) bool {
	if r.Region != "" && r.Region != region {
		return false
	}
	if r.Category == "" {
		return true
	}
	for _, category := range categories {
		if category == r.Category {
			return true
		}
	}
	return false
}

// Resolve picks the rate of the highest-priority rule matching the region
// and categories. No match resolves to zero. Ties on priority resolve to the
// first matching rule in the provider's order.
func Resolve(rules []TaxRule, region string, categories []string) decimal.Decimal {
	matched := make([]TaxRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Matches(region, categories) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return decimal.Zero
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	return matched[0].Rate
}
