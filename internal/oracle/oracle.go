// Package oracle maintains a single authoritative ETH/USDC quote, refreshed
// from an ordered chain of upstream providers with fallback, a single-flight
// refresh guard, and staleness-triggered asynchronous refresh.
package oracle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// Config holds oracle policy parameters.
type Config struct {
	// SpreadPct is the half-spread applied around the mid price.
	SpreadPct float64
	// StaleAfter is the quote age past which a read triggers an async refresh.
	StaleAfter time.Duration
	// RefreshInterval is the background refresh cadence.
	RefreshInterval time.Duration
	// SeedPrice is served until the first successful fetch (or cache warm start).
	SeedPrice float64

	// Now overrides the clock for tests. Defaults to time.Now.
	Now func() time.Time
}

// Oracle aggregates unreliable upstream price sources into one trustworthy
// quote. All methods are safe for concurrent use.
type Oracle struct {
	cfg       Config
	providers []Provider
	cache     domain.QuoteCache // may be nil
	logger    *slog.Logger
	now       func() time.Time

	// refreshing collapses concurrent Refresh calls into at most one
	// in-flight provider chain: extra callers drop, they do not queue.
	refreshing atomic.Bool

	mu    sync.RWMutex
	quote domain.PriceQuote

	// onQuote, if set, is invoked after every successful refresh.
	onQuote func(domain.PriceQuote)
	// onDegraded, if set, is invoked when every provider fails a cycle.
	onDegraded func()
}

// New creates an Oracle over the given provider chain. Providers are attempted
// in slice order on each refresh. cache may be nil; when present, the last
// persisted quote seeds the oracle instead of cfg.SeedPrice.
func New(cfg Config, providers []Provider, cache domain.QuoteCache, logger *slog.Logger) *Oracle {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	o := &Oracle{
		cfg:       cfg,
		providers: providers,
		cache:     cache,
		logger:    logger.With(slog.String("component", "oracle")),
		now:       cfg.Now,
	}

	o.quote = o.seedQuote()
	return o
}

// SetOnQuote registers a hook invoked after each successful refresh. Must be
// called before Run.
func (o *Oracle) SetOnQuote(fn func(domain.PriceQuote)) { o.onQuote = fn }

// SetOnDegraded registers a hook invoked when all providers fail a refresh
// cycle. Must be called before Run.
func (o *Oracle) SetOnDegraded(fn func()) { o.onDegraded = fn }

// seedQuote builds the initial quote: the cached last-known-good quote when a
// cache is configured and holds one, otherwise the configured seed price with
// a zero-age timestamp so the first read triggers a refresh.
func (o *Oracle) seedQuote() domain.PriceQuote {
	if o.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if q, err := o.cache.GetQuote(ctx); err == nil && q.MidPrice > 0 {
			o.logger.Info("warm starting from cached quote",
				slog.Float64("mid_price", q.MidPrice),
				slog.Time("observed_at", q.ObservedAt),
			)
			return q
		}
	}
	return o.derive(o.cfg.SeedPrice, time.Time{})
}

// derive builds a full PriceQuote from a mid price by applying the symmetric
// spread.
func (o *Oracle) derive(mid float64, observedAt time.Time) domain.PriceQuote {
	return domain.PriceQuote{
		MidPrice:   mid,
		BuyPrice:   mid * (1 + o.cfg.SpreadPct),
		SellPrice:  mid * (1 - o.cfg.SpreadPct),
		ObservedAt: observedAt,
	}
}

// Quote returns the current quote. If the quote is older than StaleAfter it
// schedules an asynchronous refresh but still returns the existing quote
// immediately; callers never block on upstream providers.
func (o *Oracle) Quote() domain.PriceQuote {
	o.mu.RLock()
	q := o.quote
	o.mu.RUnlock()

	if q.Stale(o.now(), o.cfg.StaleAfter) {
		go o.Refresh(context.Background())
	}

	return q
}

// Refresh attempts the provider chain in priority order and replaces the quote
// with the first successful result. On total provider failure the previous
// quote is retained unchanged; Refresh never reports an error to the caller.
//
// At most one refresh runs at a time. A call made while another refresh is in
// flight returns immediately without enqueueing a second attempt.
func (o *Oracle) Refresh(ctx context.Context) {
	if !o.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer o.refreshing.Store(false)

	for _, p := range o.providers {
		price, err := p.FetchPrice(ctx)
		res := domain.ProviderResult{Provider: p.Name(), Price: price, Err: err}
		if !res.Success() {
			o.logger.WarnContext(ctx, "provider failed, falling through",
				slog.String("provider", res.Provider),
				slog.String("kind", classify(err)),
				slog.String("error", err.Error()),
			)
			continue
		}

		q := o.derive(price, o.now())
		o.mu.Lock()
		o.quote = q
		o.mu.Unlock()

		o.logger.InfoContext(ctx, "quote refreshed",
			slog.String("provider", res.Provider),
			slog.Float64("mid_price", q.MidPrice),
			slog.Float64("buy_price", q.BuyPrice),
			slog.Float64("sell_price", q.SellPrice),
		)

		if o.cache != nil {
			if err := o.cache.SetQuote(ctx, q); err != nil {
				o.logger.WarnContext(ctx, "persist quote failed",
					slog.String("error", err.Error()),
				)
			}
		}

		if o.onQuote != nil {
			o.onQuote(q)
		}
		return
	}

	// Every provider failed this cycle; keep serving the last-known-good quote.
	o.logger.ErrorContext(ctx, "all providers failed, retaining previous quote",
		slog.Int("providers", len(o.providers)),
	)
	if o.onDegraded != nil {
		o.onDegraded()
	}
}

// Run refreshes immediately and then on the configured cadence until ctx is
// cancelled. It always returns nil: refresh failures degrade silently.
func (o *Oracle) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "starting background refresh",
		slog.Duration("interval", o.cfg.RefreshInterval),
	)

	o.Refresh(ctx)

	ticker := time.NewTicker(o.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("background refresh stopped")
			return nil
		case <-ticker.C:
			o.Refresh(ctx)
		}
	}
}
