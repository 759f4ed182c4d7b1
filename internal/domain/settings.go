package domain

import "fmt"

// RiskLevel expresses how aggressively the agent is allowed to trade.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TradingSettings is pure configuration consumed by the agent. It has no side
// effects on the ledger or the oracle.
type TradingSettings struct {
	ProfitTargetPct float64   `json:"profit"`
	StopLossPct     float64   `json:"loss"`
	RiskLevel       RiskLevel `json:"risk"`
}

// DefaultTradingSettings mirrors the dashboard defaults: 10% profit target,
// 5% stop loss, medium risk.
func DefaultTradingSettings() TradingSettings {
	return TradingSettings{
		ProfitTargetPct: 0.10,
		StopLossPct:     0.05,
		RiskLevel:       RiskMedium,
	}
}

// Validate checks the settings for out-of-range values.
func (s TradingSettings) Validate() error {
	if s.ProfitTargetPct <= 0 {
		return fmt.Errorf("%w: profit target must be > 0", ErrValidation)
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("%w: stop loss must be in (0, 1)", ErrValidation)
	}
	switch s.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
		return nil
	default:
		return fmt.Errorf("%w: risk level %q (must be low, medium, or high)", ErrValidation, s.RiskLevel)
	}
}
