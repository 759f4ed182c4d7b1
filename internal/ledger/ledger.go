// Package ledger holds the authoritative account balances and executes atomic
// buy/sell conversions against the oracle's quote. Each account is an
// independent unit of consistency guarded by its own mutex, so two concurrent
// swaps on the same account can never double-spend or lose state.
package ledger

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// PriceSource supplies the quote a swap executes against. Satisfied by
// *oracle.Oracle.
type PriceSource interface {
	Quote() domain.PriceQuote
}

// Config holds the fee and price-impact model parameters.
type Config struct {
	// FeeRate is the per-trade fee deducted from the converted amount.
	FeeRate float64
	// MaxImpact caps the reported price impact.
	MaxImpact float64
	// BuyImpactUnit divides the USDC notional to produce the buy impact.
	BuyImpactUnit float64
	// SellImpactUnit divides the ETH notional to produce the sell impact.
	SellImpactUnit float64

	// Now overrides the clock for tests. Defaults to time.Now.
	Now func() time.Time
}

// account pairs balances with the receipt log and the per-account lock that
// serializes SetBalances/ExecuteSwap against it.
type account struct {
	mu       sync.Mutex
	state    domain.LedgerAccount
	receipts []domain.TradeReceipt
}

// Ledger is an account-keyed swap ledger. All methods are safe for concurrent
// use; operations on distinct accounts never contend.
type Ledger struct {
	cfg    Config
	prices PriceSource
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	accounts map[string]*account
}

// New creates an empty Ledger executing against the given price source.
func New(cfg Config, prices PriceSource, logger *slog.Logger) *Ledger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{
		cfg:      cfg,
		prices:   prices,
		logger:   logger.With(slog.String("component", "ledger")),
		now:      cfg.Now,
		accounts: make(map[string]*account),
	}
}

// lookup returns the account for addr, or nil if it does not exist.
func (l *Ledger) lookup(addr string) *account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[addr]
}

// ensure returns the account for addr, creating it with zero balances when
// absent.
func (l *Ledger) ensure(addr string) *account {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[addr]; ok {
		return a
	}
	a := &account{state: domain.LedgerAccount{Address: addr}}
	l.accounts[addr] = a
	return a
}

// CreateAccount registers a zero-balance account for addr. Creating an
// existing account is a no-op.
func (l *Ledger) CreateAccount(addr string) {
	l.ensure(addr)
}

// SetBalances overwrites the account's balances wholesale. It is a funding
// operation, not a trade: it does not append to the receipt history. The
// account is created if it does not exist yet. Negative values are rejected.
func (l *Ledger) SetBalances(addr string, base, quote float64) (domain.LedgerAccount, error) {
	if base < 0 || quote < 0 {
		return domain.LedgerAccount{}, fmt.Errorf("%w: balances must not be negative (eth=%g, usdc=%g)", domain.ErrValidation, base, quote)
	}

	a := l.ensure(addr)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.BaseBalance = base
	a.state.QuoteBalance = quote

	l.logger.Info("balances set",
		slog.String("address", addr),
		slog.Float64("eth", base),
		slog.Float64("usdc", quote),
	)

	return a.state, nil
}

// Balances returns a snapshot of the account's balances.
func (l *Ledger) Balances(addr string) (domain.LedgerAccount, error) {
	a := l.lookup(addr)
	if a == nil {
		return domain.LedgerAccount{}, fmt.Errorf("ledger: %w: %s", domain.ErrAccountNotFound, addr)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, nil
}

// History returns a copy of the account's receipt log in execution order.
func (l *Ledger) History(addr string) ([]domain.TradeReceipt, error) {
	a := l.lookup(addr)
	if a == nil {
		return nil, fmt.Errorf("ledger: %w: %s", domain.ErrAccountNotFound, addr)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.TradeReceipt, len(a.receipts))
	copy(out, a.receipts)
	return out, nil
}

// ExecuteSwap converts the entirety of one balance into the other (sweep
// semantics) at the oracle's current buy or sell price, deducting the fee and
// reporting — but not deducting — the price impact. The read-compute-mutate-
// append sequence runs as one critical section under the account lock.
func (l *Ledger) ExecuteSwap(addr string, action domain.TradeAction) (domain.TradeReceipt, error) {
	a := l.lookup(addr)
	if a == nil {
		return domain.TradeReceipt{}, fmt.Errorf("ledger: %w: %s", domain.ErrAccountNotFound, addr)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	quote := l.prices.Quote()

	var receipt domain.TradeReceipt
	switch action {
	case domain.ActionBuy:
		if a.state.QuoteBalance <= 0 {
			return domain.TradeReceipt{}, fmt.Errorf("ledger: %w: no USDC available", domain.ErrInsufficientBalance)
		}
		in := a.state.QuoteBalance
		price := quote.BuyPrice
		out := in / price * (1 - l.cfg.FeeRate)
		receipt = domain.TradeReceipt{
			ID:          uuid.New().String(),
			Action:      domain.ActionBuy,
			InAmount:    in,
			OutAmount:   out,
			PriceUsed:   price,
			FeeAmount:   in * l.cfg.FeeRate,
			PriceImpact: l.impact(in, l.cfg.BuyImpactUnit),
			ExecutedAt:  l.now(),
		}
		a.state.QuoteBalance = 0
		a.state.BaseBalance += out

	case domain.ActionSell:
		if a.state.BaseBalance <= 0 {
			return domain.TradeReceipt{}, fmt.Errorf("ledger: %w: no ETH available", domain.ErrInsufficientBalance)
		}
		in := a.state.BaseBalance
		price := quote.SellPrice
		out := in * price * (1 - l.cfg.FeeRate)
		receipt = domain.TradeReceipt{
			ID:        uuid.New().String(),
			Action:    domain.ActionSell,
			InAmount:  in,
			OutAmount: out,
			PriceUsed: price,
			// Fee quoted in USDC on both sides: out*f/(1-f) == in*price*f.
			FeeAmount:   out * l.cfg.FeeRate / (1 - l.cfg.FeeRate),
			PriceImpact: l.impact(in, l.cfg.SellImpactUnit),
			ExecutedAt:  l.now(),
		}
		a.state.BaseBalance = 0
		a.state.QuoteBalance += out

	default:
		return domain.TradeReceipt{}, fmt.Errorf("ledger: %w: %q", domain.ErrInvalidAction, action)
	}

	a.receipts = append(a.receipts, receipt)

	l.logger.Info("swap executed",
		slog.String("address", addr),
		slog.String("action", string(receipt.Action)),
		slog.Float64("in_amount", receipt.InAmount),
		slog.Float64("out_amount", receipt.OutAmount),
		slog.Float64("price", receipt.PriceUsed),
		slog.Float64("fee", receipt.FeeAmount),
		slog.Float64("price_impact", receipt.PriceImpact),
	)

	return receipt, nil
}

// impact models larger trades facing worse effective pricing: in/unit capped
// at MaxImpact. Informational only; it is not deducted from the converted
// amount.
func (l *Ledger) impact(in, unit float64) float64 {
	return math.Min(in/unit, l.cfg.MaxImpact)
}
