package agent

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

func testAgent() *Agent {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(domain.DefaultTradingSettings(), logger)
}

func TestAgent_Settings(t *testing.T) {
	t.Parallel()

	a := testAgent()
	assert.Equal(t, domain.DefaultTradingSettings(), a.Settings())
}

func TestAgent_UpdateSettings(t *testing.T) {
	t.Parallel()

	a := testAgent()
	next := domain.TradingSettings{ProfitTargetPct: 0.25, StopLossPct: 0.1, RiskLevel: domain.RiskHigh}
	require.NoError(t, a.UpdateSettings(next))
	assert.Equal(t, next, a.Settings())
}

func TestAgent_UpdateSettings_Invalid(t *testing.T) {
	t.Parallel()

	a := testAgent()
	before := a.Settings()

	err := a.UpdateSettings(domain.TradingSettings{ProfitTargetPct: 0, StopLossPct: 0.1, RiskLevel: domain.RiskLow})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, before, a.Settings(), "invalid settings are not applied")

	err = a.UpdateSettings(domain.TradingSettings{ProfitTargetPct: 0.1, StopLossPct: 0.1, RiskLevel: "reckless"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAgent_EvaluateHolds(t *testing.T) {
	t.Parallel()

	a := testAgent()
	d := a.Evaluate(
		domain.PriceQuote{MidPrice: 50, BuyPrice: 50.25, SellPrice: 49.75},
		domain.LedgerAccount{BaseBalance: 1, QuoteBalance: 100},
	)
	assert.Equal(t, DecisionHold, d)
}
