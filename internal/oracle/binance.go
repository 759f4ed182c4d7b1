package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// BinanceProvider fetches the ETHUSDT ticker price from the Binance REST API.
// It is the first fallback in the default chain.
type BinanceProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinanceProvider creates a Binance provider rooted at baseURL, e.g.
// "https://api.binance.com".
func NewBinanceProvider(baseURL string, timeout time.Duration) *BinanceProvider {
	return &BinanceProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *BinanceProvider) Name() string { return "binance" }

// FetchPrice returns the current ETH/USD price (ETHUSDT proxy).
func (p *BinanceProvider) FetchPrice(ctx context.Context) (float64, error) {
	url := p.baseURL + "/api/v3/ticker/price?symbol=ETHUSDT"

	body, err := doGet(ctx, p.httpClient, url)
	if err != nil {
		return 0, fmt.Errorf("binance: %w", err)
	}

	// Response shape: {"symbol":"ETHUSDT","price":"3124.56000000"}
	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("binance: %w: %v", ErrMalformedPayload, err)
	}
	if payload.Price == "" {
		return 0, fmt.Errorf("binance: %w", ErrMissingField)
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("binance: %w: price %q", ErrMalformedPayload, payload.Price)
	}

	return price, nil
}

var _ Provider = (*BinanceProvider)(nil)
