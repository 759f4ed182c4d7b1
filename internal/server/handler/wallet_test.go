package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/swapdesk/internal/agent"
	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/wallet"
)

func TestCreateWallet(t *testing.T) {
	t.Parallel()

	l, _, custodian := testDeps(t)
	h := NewWalletHandler(custodian, l, testLogger())

	rec, payload := postJSON(t, h.CreateWallet, ``)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, payload["success"])
	wlt := payload["wallet"].(map[string]any)
	address := wlt["address"].(string)
	assert.True(t, wallet.ValidAddress(address))
	assert.Len(t, wlt, 1, "the private key must never leave the server")

	// The ledger account exists with zero balances.
	acct, err := l.Balances(address)
	require.NoError(t, err)
	assert.Zero(t, acct.BaseBalance)
	assert.Zero(t, acct.QuoteBalance)
}

func TestCheckBalances(t *testing.T) {
	t.Parallel()

	l, _, custodian := testDeps(t)
	h := NewWalletHandler(custodian, l, testLogger())

	t.Run("no address anywhere", func(t *testing.T) {
		rec, _ := postJSON(t, h.CheckBalances, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		rec, _ := postJSON(t, h.CheckBalances, `{"address": "0x8ba1f109551bD432803012645Ac136ddd64DBA72"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("funded account", func(t *testing.T) {
		const addr = "0x2af47a65da8CD66729b4989dB595268E6b3a336E"
		_, err := l.SetBalances(addr, 1.5, 200)
		require.NoError(t, err)

		rec, payload := postJSON(t, h.CheckBalances, `{"address": "`+addr+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		balances := payload["balances"].(map[string]any)
		assert.Equal(t, 1.5, balances["eth"])
		assert.Equal(t, 200.0, balances["usdc"])
	})

	t.Run("defaults to active wallet", func(t *testing.T) {
		w, err := custodian.CreateWallet()
		require.NoError(t, err)
		_, err = l.SetBalances(w.Address, 0, 50)
		require.NoError(t, err)

		rec, payload := postJSON(t, h.CheckBalances, `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
		balances := payload["balances"].(map[string]any)
		assert.Equal(t, 50.0, balances["usdc"])
	})
}

func TestGetPrice(t *testing.T) {
	t.Parallel()

	quote := fixedQuote{q: domain.PriceQuote{
		MidPrice:   50,
		BuyPrice:   50.25,
		SellPrice:  49.75,
		ObservedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}}
	h := NewPriceHandler(quote, testLogger())

	rec, payload := postJSON(t, h.GetPrice, ``)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, payload["success"])
	assert.Equal(t, 50.0, payload["price"])
	assert.Equal(t, 50.25, payload["buyPrice"])
	assert.Equal(t, 49.75, payload["sellPrice"])
	assert.Equal(t, float64(quote.q.ObservedAt.UnixMilli()), payload["lastUpdate"])
	assert.NotZero(t, payload["timestamp"])
}

func TestGetPrice_SeededQuote(t *testing.T) {
	t.Parallel()

	// Before the first upstream fetch the quote carries a zero timestamp.
	quote := fixedQuote{q: domain.PriceQuote{MidPrice: 48.75, BuyPrice: 48.99, SellPrice: 48.51}}
	h := NewPriceHandler(quote, testLogger())

	rec, payload := postJSON(t, h.GetPrice, ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, payload["lastUpdate"])
}

func TestSettingsEndpoints(t *testing.T) {
	t.Parallel()

	a := agent.New(domain.DefaultTradingSettings(), testLogger())
	h := NewSettingsHandler(a, testLogger())

	rec, payload := postJSON(t, h.GetSettings, ``)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := payload["settings"].(map[string]any)
	assert.Equal(t, 0.10, settings["profit"])
	assert.Equal(t, 0.05, settings["loss"])
	assert.Equal(t, "medium", settings["risk"])

	rec, payload = postJSON(t, h.SetSettings, `{"profit": 0.2, "loss": 0.1, "risk": "high"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings = payload["settings"].(map[string]any)
	assert.Equal(t, 0.2, settings["profit"])
	assert.Equal(t, "high", settings["risk"])

	rec, _ = postJSON(t, h.SetSettings, `{"profit": -5, "loss": 0.1, "risk": "high"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.RiskHigh, a.Settings().RiskLevel, "failed update leaves settings untouched")
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(testLogger())
	rec, payload := postJSON(t, h.HealthCheck, ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}
