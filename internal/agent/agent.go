// Package agent holds the trading settings and a deliberately inert decision
// stub. It exists so the dashboard's settings form has a consumer; it places
// no trades on its own.
package agent

import (
	"log/slog"
	"sync"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// Decision is the agent's recommendation for the current tick.
type Decision string

const (
	DecisionHold Decision = "hold"
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
)

// Agent evaluates market state against the configured trading settings.
type Agent struct {
	logger *slog.Logger

	mu       sync.RWMutex
	settings domain.TradingSettings
}

// New creates an Agent with the given initial settings.
func New(settings domain.TradingSettings, logger *slog.Logger) *Agent {
	return &Agent{
		logger:   logger.With(slog.String("component", "agent")),
		settings: settings,
	}
}

// Settings returns the current trading settings.
func (a *Agent) Settings() domain.TradingSettings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// UpdateSettings validates and replaces the trading settings.
func (a *Agent) UpdateSettings(s domain.TradingSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()

	a.logger.Info("settings updated",
		slog.Float64("profit_target", s.ProfitTargetPct),
		slog.Float64("stop_loss", s.StopLossPct),
		slog.String("risk", string(s.RiskLevel)),
	)
	return nil
}

// Evaluate returns the agent's recommendation for the given quote and
// balances. The current implementation always holds: automated execution is
// intentionally not wired up.
func (a *Agent) Evaluate(q domain.PriceQuote, acct domain.LedgerAccount) Decision {
	s := a.Settings()
	a.logger.Debug("evaluated market",
		slog.Float64("mid_price", q.MidPrice),
		slog.Float64("eth", acct.BaseBalance),
		slog.Float64("usdc", acct.QuoteBalance),
		slog.String("risk", string(s.RiskLevel)),
		slog.String("decision", string(DecisionHold)),
	)
	return DecisionHold
}
