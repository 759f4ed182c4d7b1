package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// CoinbaseProvider fetches the ETH-USD spot price from the Coinbase v2 API.
// It is the last fallback in the default chain.
type CoinbaseProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinbaseProvider creates a Coinbase provider rooted at baseURL, e.g.
// "https://api.coinbase.com".
func NewCoinbaseProvider(baseURL string, timeout time.Duration) *CoinbaseProvider {
	return &CoinbaseProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *CoinbaseProvider) Name() string { return "coinbase" }

// FetchPrice returns the current ETH/USD spot price.
func (p *CoinbaseProvider) FetchPrice(ctx context.Context) (float64, error) {
	url := p.baseURL + "/v2/prices/ETH-USD/spot"

	body, err := doGet(ctx, p.httpClient, url)
	if err != nil {
		return 0, fmt.Errorf("coinbase: %w", err)
	}

	// Response shape: {"data":{"base":"ETH","currency":"USD","amount":"3124.56"}}
	var payload struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("coinbase: %w: %v", ErrMalformedPayload, err)
	}
	if payload.Data.Amount == "" {
		return 0, fmt.Errorf("coinbase: %w", ErrMissingField)
	}

	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("coinbase: %w: amount %q", ErrMalformedPayload, payload.Data.Amount)
	}

	return price, nil
}

var _ Provider = (*CoinbaseProvider)(nil)
