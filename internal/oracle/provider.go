package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Provider is a single upstream price source. Implementations must be
// time-bounded: a hung upstream counts as a failure, never a hang.
type Provider interface {
	// Name returns a short identifier used in logs ("coingecko", "binance").
	Name() string
	// FetchPrice returns the current ETH/USD price from the upstream.
	FetchPrice(ctx context.Context) (float64, error)
}

// Provider failures are categorized for observability only; the oracle absorbs
// all of them behind its fallback chain.
var (
	// ErrMalformedPayload marks a response body that failed to decode.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMissingField marks a decoded response without the expected price field.
	ErrMissingField = errors.New("missing price field")
	// ErrBadStatus marks a non-2xx upstream response.
	ErrBadStatus = errors.New("unexpected status")
)

// classify maps a provider error to a coarse category for log fields.
func classify(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "parse"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrBadStatus):
		return "rate_limit_or_status"
	default:
		return "network"
	}
}

// doGet issues a GET request and returns the response body, mapping transport
// and status failures onto the provider error taxonomy.
func doGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d", ErrBadStatus, resp.StatusCode)
	}

	return body, nil
}
