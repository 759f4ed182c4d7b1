package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/redis/go-redis/v9"
)

// quoteKey holds the last-known-good quote as a Redis hash with fields
// "mid", "buy", "sell", and "ts" (Unix nanosecond timestamp).
const quoteKey = "quote:ETH-USDC"

// QuoteCache implements domain.QuoteCache so a restarted oracle warm-starts
// from the last persisted quote instead of the configured seed price.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

// SetQuote stores the quote, replacing any previous value.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	fields := map[string]interface{}{
		"mid":  strconv.FormatFloat(q.MidPrice, 'f', -1, 64),
		"buy":  strconv.FormatFloat(q.BuyPrice, 'f', -1, 64),
		"sell": strconv.FormatFloat(q.SellPrice, 'f', -1, 64),
		"ts":   strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
	}
	if err := qc.rdb.HSet(ctx, quoteKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote: %w", err)
	}
	return nil
}

// GetQuote retrieves the last persisted quote. It returns domain.ErrNotFound
// when no quote has been stored yet.
func (qc *QuoteCache) GetQuote(ctx context.Context) (domain.PriceQuote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote: %w", err)
	}
	if len(vals) == 0 {
		return domain.PriceQuote{}, domain.ErrNotFound
	}

	var q domain.PriceQuote
	if q.MidPrice, err = parseField(vals, "mid"); err != nil {
		return domain.PriceQuote{}, err
	}
	if q.BuyPrice, err = parseField(vals, "buy"); err != nil {
		return domain.PriceQuote{}, err
	}
	if q.SellPrice, err = parseField(vals, "sell"); err != nil {
		return domain.PriceQuote{}, err
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote ts: %w", err)
	}
	q.ObservedAt = time.Unix(0, tsNano)

	return q, nil
}

func parseField(vals map[string]string, field string) (float64, error) {
	s, ok := vals[field]
	if !ok {
		return 0, domain.ErrNotFound
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse quote %s: %w", field, err)
	}
	return f, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
