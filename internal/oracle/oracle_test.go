package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// stubProvider returns a fixed price or error and counts calls. An optional
// release channel blocks FetchPrice until closed.
type stubProvider struct {
	name    string
	price   float64
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchPrice(ctx context.Context) (float64, error) {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if p.err != nil {
		return 0, p.err
	}
	return p.price, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		SpreadPct:       0.005,
		StaleAfter:      10 * time.Minute,
		RefreshInterval: time.Minute,
		SeedPrice:       48.75,
	}
}

func TestOracle_SeedQuote(t *testing.T) {
	t.Parallel()

	o := New(testConfig(), nil, nil, testLogger())

	q := o.quoteSnapshot()
	assert.InDelta(t, 48.75, q.MidPrice, 1e-9)
	assert.InDelta(t, 48.75*1.005, q.BuyPrice, 1e-9)
	assert.InDelta(t, 48.75*0.995, q.SellPrice, 1e-9)
	assert.True(t, q.ObservedAt.IsZero())
}

func TestOracle_FallbackOrder(t *testing.T) {
	t.Parallel()

	p1 := &stubProvider{name: "primary", err: errors.New("connection refused")}
	p2 := &stubProvider{name: "secondary", price: 50}
	p3 := &stubProvider{name: "tertiary", price: 999}

	o := New(testConfig(), []Provider{p1, p2, p3}, nil, testLogger())
	o.Refresh(context.Background())

	q := o.quoteSnapshot()
	assert.InDelta(t, 50.0, q.MidPrice, 1e-9)
	assert.InDelta(t, 50.25, q.BuyPrice, 1e-9)
	assert.InDelta(t, 49.75, q.SellPrice, 1e-9)
	assert.False(t, q.ObservedAt.IsZero())

	assert.Equal(t, int32(1), p1.calls.Load())
	assert.Equal(t, int32(1), p2.calls.Load())
	assert.Equal(t, int32(0), p3.calls.Load(), "chain must stop at the first success")
}

func TestOracle_AllProvidersFail_RetainsQuote(t *testing.T) {
	t.Parallel()

	p1 := &stubProvider{name: "primary", price: 50}
	o := New(testConfig(), []Provider{p1}, nil, testLogger())
	o.Refresh(context.Background())
	before := o.quoteSnapshot()

	degraded := false
	o.SetOnDegraded(func() { degraded = true })

	p1.err = errors.New("boom")
	o.Refresh(context.Background())

	assert.Equal(t, before, o.quoteSnapshot(), "failed cycle must not change the quote")
	assert.True(t, degraded)
}

func TestOracle_SingleFlight(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "primary", price: 50, release: make(chan struct{})}
	o := New(testConfig(), []Provider{p}, nil, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Refresh(context.Background())
	}()

	// Wait until the first refresh is inside the provider call.
	require.Eventually(t, func() bool {
		return p.calls.Load() == 1
	}, time.Second, time.Millisecond)

	// Concurrent refreshes while one is in flight must drop, not queue.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Refresh(context.Background())
		}()
	}

	close(p.release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load(), "exactly one upstream call sequence")
}

func TestOracle_StaleQuoteTriggersAsyncRefresh(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "primary", price: 52}
	cfg := testConfig()
	o := New(cfg, []Provider{p}, nil, testLogger())

	// The seed quote has a zero timestamp, so the first read is stale.
	q := o.Quote()
	assert.InDelta(t, 48.75, q.MidPrice, 1e-9, "stale read still returns the old quote synchronously")

	require.Eventually(t, func() bool {
		return o.quoteSnapshot().MidPrice == 52
	}, time.Second, time.Millisecond, "the read must have scheduled a refresh")
}

func TestOracle_FreshQuoteDoesNotRefresh(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "primary", price: 52}
	o := New(testConfig(), []Provider{p}, nil, testLogger())
	o.Refresh(context.Background())
	require.Equal(t, int32(1), p.calls.Load())

	for i := 0; i < 5; i++ {
		o.Quote()
	}
	// Give any stray goroutine a moment to show up.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), p.calls.Load())
}

// fakeQuoteCache is an in-memory domain.QuoteCache.
type fakeQuoteCache struct {
	mu    sync.Mutex
	quote domain.PriceQuote
	set   bool
}

func (c *fakeQuoteCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote, c.set = q, true
	return nil
}

func (c *fakeQuoteCache) GetQuote(ctx context.Context) (domain.PriceQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	return c.quote, nil
}

func TestOracle_CacheWarmStartAndPersist(t *testing.T) {
	t.Parallel()

	cache := &fakeQuoteCache{}
	p := &stubProvider{name: "primary", price: 51}

	o := New(testConfig(), []Provider{p}, cache, testLogger())
	o.Refresh(context.Background())

	cached, err := cache.GetQuote(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 51.0, cached.MidPrice, 1e-9)

	// A second oracle warm starts from the cache instead of the seed price.
	o2 := New(testConfig(), nil, cache, testLogger())
	assert.InDelta(t, 51.0, o2.quoteSnapshot().MidPrice, 1e-9)
}

func TestOracle_OnQuoteHook(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "primary", price: 50}
	o := New(testConfig(), []Provider{p}, nil, testLogger())

	var got domain.PriceQuote
	o.SetOnQuote(func(q domain.PriceQuote) { got = q })
	o.Refresh(context.Background())

	assert.InDelta(t, 50.0, got.MidPrice, 1e-9)
}

func TestOracle_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "primary", price: 50}
	cfg := testConfig()
	cfg.RefreshInterval = 5 * time.Millisecond
	o := New(cfg, []Provider{p}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool {
		return p.calls.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

// quoteSnapshot reads the quote without the staleness side effect of Quote.
func (o *Oracle) quoteSnapshot() domain.PriceQuote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.quote
}
