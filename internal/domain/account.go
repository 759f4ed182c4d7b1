package domain

import (
	"fmt"
	"time"
)

// TradeAction is the direction of a swap: buy converts USDC into ETH, sell
// converts ETH into USDC.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// ParseAction validates a raw action string from a request body.
func ParseAction(s string) (TradeAction, error) {
	switch TradeAction(s) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	default:
		return "", fmt.Errorf("%w: %q (must be 'buy' or 'sell')", ErrInvalidAction, s)
	}
}

// LedgerAccount holds the balances of one custodial account. Balances are
// never negative; swaps move value between the two sides minus the fee.
type LedgerAccount struct {
	Address      string  `json:"address"`
	BaseBalance  float64 `json:"eth"`
	QuoteBalance float64 `json:"usdc"`
}

// TradeReceipt describes one executed swap. Receipts are immutable once
// created and are appended to the account's history in execution order.
type TradeReceipt struct {
	ID          string      `json:"id"`
	Action      TradeAction `json:"action"`
	InAmount    float64     `json:"inAmount"`
	OutAmount   float64     `json:"outAmount"`
	PriceUsed   float64     `json:"price"`
	FeeAmount   float64     `json:"fee"`
	PriceImpact float64     `json:"priceImpact"`
	ExecutedAt  time.Time   `json:"executedAt"`
}
