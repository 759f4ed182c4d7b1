package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CoinGeckoProvider fetches the ETH/USD spot price from the CoinGecko simple
// price API. It is the primary provider in the default chain.
type CoinGeckoProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoProvider creates a CoinGecko provider rooted at baseURL, e.g.
// "https://api.coingecko.com".
func NewCoinGeckoProvider(baseURL string, timeout time.Duration) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider identifier.
func (p *CoinGeckoProvider) Name() string { return "coingecko" }

// FetchPrice returns the current ETH/USD price.
func (p *CoinGeckoProvider) FetchPrice(ctx context.Context) (float64, error) {
	url := p.baseURL + "/api/v3/simple/price?ids=ethereum&vs_currencies=usd"

	body, err := doGet(ctx, p.httpClient, url)
	if err != nil {
		return 0, fmt.Errorf("coingecko: %w", err)
	}

	// Response shape: {"ethereum":{"usd":3124.56}}
	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("coingecko: %w: %v", ErrMalformedPayload, err)
	}

	usd, ok := payload["ethereum"]["usd"]
	if !ok || usd <= 0 {
		return 0, fmt.Errorf("coingecko: %w", ErrMissingField)
	}

	return usd, nil
}

var _ Provider = (*CoinGeckoProvider)(nil)
