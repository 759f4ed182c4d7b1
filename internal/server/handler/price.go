package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// QuoteSource supplies the current price quote. Satisfied by *oracle.Oracle.
type QuoteSource interface {
	Quote() domain.PriceQuote
}

// PriceHandler serves the current oracle quote.
type PriceHandler struct {
	oracle QuoteSource
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(oracle QuoteSource, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{oracle: oracle, logger: logger}
}

// GetPrice returns the current mid/buy/sell prices. A stale quote is still
// served; the oracle refreshes asynchronously behind the read.
// POST /price
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	q := h.oracle.Quote()

	// lastUpdate is 0 until the first successful upstream fetch.
	var lastUpdate int64
	if !q.ObservedAt.IsZero() {
		lastUpdate = q.ObservedAt.UnixMilli()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"price":      q.MidPrice,
		"buyPrice":   q.BuyPrice,
		"sellPrice":  q.SellPrice,
		"timestamp":  time.Now().UnixMilli(),
		"lastUpdate": lastUpdate,
	})
}
