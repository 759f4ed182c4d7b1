package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/ledger"
	"github.com/halcyonlabs/swapdesk/internal/notify"
	"github.com/halcyonlabs/swapdesk/internal/wallet"
)

// TradeBroadcaster pushes executed trades to live dashboard clients.
// Satisfied by *ws.Hub; may be nil.
type TradeBroadcaster interface {
	BroadcastTrade(r domain.TradeReceipt)
}

// SwapHandler serves funding, pair status, swap execution, and trade history.
type SwapHandler struct {
	ledger    *ledger.Ledger
	oracle    QuoteSource
	custodian *wallet.Custodian
	hub       TradeBroadcaster
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewSwapHandler creates a SwapHandler. hub and notifier may be nil.
func NewSwapHandler(
	l *ledger.Ledger,
	oracle QuoteSource,
	custodian *wallet.Custodian,
	hub TradeBroadcaster,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *SwapHandler {
	return &SwapHandler{
		ledger:    l,
		oracle:    oracle,
		custodian: custodian,
		hub:       hub,
		notifier:  notifier,
		logger:    logger,
	}
}

// resolveAddress picks the explicit request address or falls back to the
// active custodial wallet.
func (h *SwapHandler) resolveAddress(reqAddr string) (string, error) {
	if reqAddr != "" {
		if !wallet.ValidAddress(reqAddr) {
			return "", fmt.Errorf("%w: malformed address %q", domain.ErrValidation, reqAddr)
		}
		return reqAddr, nil
	}
	if active, ok := h.custodian.Active(); ok {
		return active.Address, nil
	}
	return "", domain.ErrWalletNotConfigured
}

// SetSwap seeds the trading balances for an account. It is a funding
// operation: balances are replaced wholesale and no receipt is recorded.
// POST /set_swap
func (h *SwapHandler) SetSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Eth     *float64 `json:"eth"`
		Usdc    *float64 `json:"usdc"`
		Address string   `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Eth == nil || req.Usdc == nil {
		writeError(w, http.StatusBadRequest, "missing required parameters (eth, usdc)")
		return
	}

	addr, err := h.resolveAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := h.ledger.SetBalances(addr, *req.Eth, *req.Usdc)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set swap failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update swap configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "swap configuration updated",
		"config": map[string]any{
			"eth":     acct.BaseBalance,
			"usdc":    acct.QuoteBalance,
			"address": acct.Address,
		},
	})
}

// FetchPair returns the balances of the resolved account together with the
// current mid price. An account that has not been funded yet reports zeros.
// POST /fetch_pair
func (h *SwapHandler) FetchPair(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	q := h.oracle.Quote()

	addr, err := h.resolveAddress(req.Address)
	if err != nil {
		// No wallet yet: the dashboard still polls this endpoint, so answer
		// with zero balances rather than an error.
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"eth":          0.0,
			"usdc":         0.0,
			"address":      nil,
			"currentPrice": q.MidPrice,
		})
		return
	}

	acct, err := h.ledger.Balances(addr)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		h.logger.ErrorContext(r.Context(), "handler: fetch pair failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch pair")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"eth":          acct.BaseBalance,
		"usdc":         acct.QuoteBalance,
		"address":      addr,
		"currentPrice": q.MidPrice,
	})
}

// Execute performs a buy or sell sweep against the active wallet's account.
// POST /swap
func (h *SwapHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string `json:"action"`
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	addr, err := h.resolveAddress(req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotConfigured) {
			writeError(w, http.StatusBadRequest, "wallet not configured, call /create-wallet first")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.ledger.ExecuteSwap(addr, action)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAccountNotFound):
			writeError(w, http.StatusBadRequest, "account not funded, call /set_swap first")
		case errors.Is(err, domain.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: swap failed",
				slog.String("address", addr),
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "swap failed")
		}
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTrade(receipt)
	}
	if h.notifier != nil {
		// Notification delivery must not hold up the trade response.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = h.notifier.Notify(ctx, notify.EventTradeExecuted,
				"Swap executed",
				fmt.Sprintf("%s %.4f -> %.4f @ %.2f (fee %.2f)",
					receipt.Action, receipt.InAmount, receipt.OutAmount,
					receipt.PriceUsed, receipt.FeeAmount),
			)
		}()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"inAmount":    receipt.InAmount,
		"outAmount":   receipt.OutAmount,
		"price":       receipt.PriceUsed,
		"priceImpact": receipt.PriceImpact,
		"fee":         receipt.FeeAmount,
	})
}

// History returns the account's trade receipts in execution order.
// POST /history
func (h *SwapHandler) History(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	addr, err := h.resolveAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipts, err := h.ledger.History(addr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusBadRequest, "unknown account: "+addr)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: history failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	if receipts == nil {
		receipts = []domain.TradeReceipt{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"trades":  receipts,
	})
}
