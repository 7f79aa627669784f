package analysis

import (
	"strings"

	"github.com/finpulse/finpulse-bot/internal/models"
)

// DefaultCategory is the fallback when nothing else decides.
const DefaultCategory = "general"

// Rule assigns a category when any of its keywords appears in the post text.
// Rules are evaluated in slice order; the first match wins.
type Rule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Categorizer assigns exactly one category to every post, in priority
// order: explicit account override, then keyword rules, then the account's
// configured default category, then the global fallback.
type Categorizer struct {
	overrides map[string]string
	rules     []Rule
	fallback  string
}

// NewCategorizer builds a categorizer. overrides maps account handles to
// hard category assignments that beat content rules.
func NewCategorizer(overrides map[string]string, rules []Rule, fallback string) *Categorizer {
	if fallback == "" {
		fallback = DefaultCategory
	}

	normalized := make(map[string]string, len(overrides))
	for handle, category := range overrides {
		normalized[strings.ToLower(handle)] = category
	}

	return &Categorizer{overrides: normalized, rules: rules, fallback: fallback}
}

// Categorize returns the post's category. accountHint is the tracked
// account's default category, consulted after content rules.
func (c *Categorizer) Categorize(post models.Post, accountHint string) string {
	if category, ok := c.overrides[strings.ToLower(post.Account)]; ok && category != "" {
		return category
	}

	padded := " " + normalizeText(post.Text) + " "
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(padded, " "+strings.ToLower(keyword)+" ") {
				return rule.Category
			}
		}
	}

	if accountHint != "" {
		return accountHint
	}

	return c.fallback
}

// Fallback returns the global default category.
func (c *Categorizer) Fallback() string {
	return c.fallback
}

// DefaultRules is the built-in keyword taxonomy.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "crypto", Keywords: []string{"bitcoin", "btc", "ethereum", "eth", "crypto", "blockchain", "defi", "altcoin"}},
		{Category: "commodities", Keywords: []string{"gold", "silver", "oil", "gas", "copper", "uranium"}},
		{Category: "economy", Keywords: []string{"inflation", "gdp", "recession", "fed", "interest rates", "unemployment", "cpi"}},
		{Category: "geopolitics", Keywords: []string{"war", "sanctions", "election", "tariff", "nato"}},
		{Category: "markets", Keywords: []string{"stocks", "stock", "nasdaq", "s p 500", "sp500", "etf", "earnings", "dividend", "index"}},
	}
}
