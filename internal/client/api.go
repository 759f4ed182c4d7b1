// Package client implements the dashboard-side mirror of the swap desk: a
// REST client for the server API and a polling store that keeps a local,
// eventually-consistent copy of the price and account state with derived
// profit/loss metrics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// API is the REST client for the swap desk server.
type API struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPI creates a new API client. baseURL is the server root, e.g.
// "http://localhost:5000". apiKey may be empty when the server runs without
// authentication.
func NewAPI(baseURL, apiKey string) *API {
	return &API{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PriceSnapshot is the server's current quote as seen by the client.
type PriceSnapshot struct {
	Price      float64 `json:"price"`
	BuyPrice   float64 `json:"buyPrice"`
	SellPrice  float64 `json:"sellPrice"`
	Timestamp  int64   `json:"timestamp"`
	LastUpdate int64   `json:"lastUpdate"`
}

// PairState is the funded trading pair as seen by the client.
type PairState struct {
	ETH          float64 `json:"eth"`
	USDC         float64 `json:"usdc"`
	Address      string  `json:"address"`
	CurrentPrice float64 `json:"currentPrice"`
}

// SwapResult is the outcome of an executed swap.
type SwapResult struct {
	Action      string  `json:"action"`
	InAmount    float64 `json:"inAmount"`
	OutAmount   float64 `json:"outAmount"`
	Price       float64 `json:"price"`
	PriceImpact float64 `json:"priceImpact"`
	Fee         float64 `json:"fee"`
}

// CreateWallet asks the server to generate a custodial wallet and returns
// its address.
func (a *API) CreateWallet(ctx context.Context) (string, error) {
	var resp struct {
		Wallet struct {
			Address string `json:"address"`
		} `json:"wallet"`
	}
	if err := a.post(ctx, "/create-wallet", nil, &resp); err != nil {
		return "", fmt.Errorf("client: create wallet: %w", err)
	}
	return resp.Wallet.Address, nil
}

// CheckBalances returns the ledger balances for the given address. An empty
// address resolves to the server's active wallet.
func (a *API) CheckBalances(ctx context.Context, address string) (domain.LedgerAccount, error) {
	req := map[string]string{}
	if address != "" {
		req["address"] = address
	}
	var resp struct {
		Balances domain.LedgerAccount `json:"balances"`
	}
	if err := a.post(ctx, "/check-balances", req, &resp); err != nil {
		return domain.LedgerAccount{}, fmt.Errorf("client: check balances: %w", err)
	}
	return resp.Balances, nil
}

// SetSwap seeds the trading pair with the given amounts.
func (a *API) SetSwap(ctx context.Context, eth, usdc float64, address string) error {
	req := map[string]any{
		"eth":  eth,
		"usdc": usdc,
	}
	if address != "" {
		req["address"] = address
	}
	if err := a.post(ctx, "/set_swap", req, nil); err != nil {
		return fmt.Errorf("client: set swap: %w", err)
	}
	return nil
}

// FetchPair returns the current pair state and price.
func (a *API) FetchPair(ctx context.Context, address string) (PairState, error) {
	req := map[string]string{}
	if address != "" {
		req["address"] = address
	}
	var resp PairState
	if err := a.post(ctx, "/fetch_pair", req, &resp); err != nil {
		return PairState{}, fmt.Errorf("client: fetch pair: %w", err)
	}
	return resp, nil
}

// Price returns the server's current quote.
func (a *API) Price(ctx context.Context) (PriceSnapshot, error) {
	var resp PriceSnapshot
	if err := a.post(ctx, "/price", nil, &resp); err != nil {
		return PriceSnapshot{}, fmt.Errorf("client: price: %w", err)
	}
	return resp, nil
}

// Swap executes a full-balance swap in the given direction.
func (a *API) Swap(ctx context.Context, action domain.TradeAction) (SwapResult, error) {
	req := map[string]string{"action": string(action)}
	var resp SwapResult
	if err := a.post(ctx, "/swap", req, &resp); err != nil {
		return SwapResult{}, fmt.Errorf("client: swap %s: %w", action, err)
	}
	resp.Action = string(action)
	return resp, nil
}

// History returns the server-side trade receipt log.
func (a *API) History(ctx context.Context, address string) ([]domain.TradeReceipt, error) {
	req := map[string]string{}
	if address != "" {
		req["address"] = address
	}
	var resp struct {
		Trades []domain.TradeReceipt `json:"trades"`
	}
	if err := a.post(ctx, "/history", req, &resp); err != nil {
		return nil, fmt.Errorf("client: history: %w", err)
	}
	return resp.Trades, nil
}

// GetSettings returns the server's agent trading settings.
func (a *API) GetSettings(ctx context.Context) (domain.TradingSettings, error) {
	var resp struct {
		Settings domain.TradingSettings `json:"settings"`
	}
	if err := a.post(ctx, "/get_settings", nil, &resp); err != nil {
		return domain.TradingSettings{}, fmt.Errorf("client: get settings: %w", err)
	}
	return resp.Settings, nil
}

// SetSettings updates the server's agent trading settings.
func (a *API) SetSettings(ctx context.Context, s domain.TradingSettings) error {
	if err := a.post(ctx, "/set_settings", s, nil); err != nil {
		return fmt.Errorf("client: set settings: %w", err)
	}
	return nil
}

// post builds, sends, and decodes a JSON POST request against the server.
// All server endpoints are POST to keep a uniform client contract.
func (a *API) post(ctx context.Context, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// checkStatus maps non-2xx HTTP status codes to errors carrying the server's
// reason string.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", apiErr.Error)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s", apiErr.Error)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s", apiErr.Error)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Error)
	}
}
