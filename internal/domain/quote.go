// Package domain defines the core types shared by the oracle, ledger, and
// HTTP layers, plus the sentinel errors used for cross-layer error mapping.
package domain

import (
	"context"
	"time"
)

// PriceQuote is the authoritative price for the ETH/USDC pair at a point in
// time. A quote is created wholesale on each successful oracle refresh and is
// never partially mutated. Invariant: BuyPrice >= MidPrice >= SellPrice.
type PriceQuote struct {
	MidPrice   float64   `json:"price"`
	BuyPrice   float64   `json:"buyPrice"`
	SellPrice  float64   `json:"sellPrice"`
	ObservedAt time.Time `json:"observedAt"`
}

// Stale reports whether the quote is older than maxAge relative to now.
func (q PriceQuote) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(q.ObservedAt) > maxAge
}

// ProviderResult records the outcome of a single upstream provider call.
// Results are ephemeral: the oracle produces one per attempted provider during
// a refresh cycle and consumes them immediately for logging.
type ProviderResult struct {
	Provider string
	Price    float64
	Err      error
}

// Success reports whether the provider returned a usable price.
func (r ProviderResult) Success() bool {
	return r.Err == nil
}

// QuoteCache persists the last-known-good quote so a restarted oracle can warm
// start from it instead of the configured seed price.
type QuoteCache interface {
	SetQuote(ctx context.Context, q PriceQuote) error
	GetQuote(ctx context.Context) (PriceQuote, error)
}

// RateLimiter limits request rates per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
