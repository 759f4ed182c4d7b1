package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/ledger"
	"github.com/halcyonlabs/swapdesk/internal/wallet"
)

// WalletHandler serves wallet creation and balance lookups.
type WalletHandler struct {
	custodian *wallet.Custodian
	ledger    *ledger.Ledger
	logger    *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(custodian *wallet.Custodian, l *ledger.Ledger, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		custodian: custodian,
		ledger:    l,
		logger:    logger,
	}
}

// CreateWallet generates a fresh custodial keypair and registers a
// zero-balance ledger account for it. The private key stays server-side.
// POST /create-wallet
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	wlt, err := h.custodian.CreateWallet()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create wallet failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create wallet")
		return
	}

	h.ledger.CreateAccount(wlt.Address)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"wallet": map[string]string{
			"address": wlt.Address,
		},
	})
}

// CheckBalances returns the ledger balances for the requested address,
// defaulting to the active custodial wallet.
// POST /check-balances
func (h *WalletHandler) CheckBalances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	addr := req.Address
	if addr == "" {
		if active, ok := h.custodian.Active(); ok {
			addr = active.Address
		}
	}
	if addr == "" {
		writeError(w, http.StatusBadRequest, "no wallet address provided")
		return
	}

	acct, err := h.ledger.Balances(addr)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusBadRequest, "unknown account: "+addr)
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: check balances failed",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to check balances")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"balances": map[string]float64{
			"eth":  acct.BaseBalance,
			"usdc": acct.QuoteBalance,
		},
	})
}
