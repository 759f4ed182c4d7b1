package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// Fetcher is the server API surface the SyncStore polls. Satisfied by *API;
// tests substitute a fake.
type Fetcher interface {
	Price(ctx context.Context) (PriceSnapshot, error)
	FetchPair(ctx context.Context, address string) (PairState, error)
	CreateWallet(ctx context.Context) (string, error)
	SetSwap(ctx context.Context, eth, usdc float64, address string) error
	Swap(ctx context.Context, action domain.TradeAction) (SwapResult, error)
	History(ctx context.Context, address string) ([]domain.TradeReceipt, error)
	GetSettings(ctx context.Context) (domain.TradingSettings, error)
	SetSettings(ctx context.Context, s domain.TradingSettings) error
}

var _ Fetcher = (*API)(nil)

// Config holds the SyncStore polling configuration.
type Config struct {
	PricePollInterval time.Duration
	PairPollInterval  time.Duration
}

// SyncStore is a polling mirror of the server's price and account state.
// Each successful poll replaces the local cache wholesale; a monotonic
// sequence number per resource discards late responses so an out-of-order
// reply can never overwrite a newer state.
type SyncStore struct {
	cfg    Config
	api    Fetcher
	logger *slog.Logger
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}

	priceSeq atomic.Uint64
	pairSeq  atomic.Uint64

	mu              sync.RWMutex
	appliedPriceSeq uint64
	appliedPairSeq  uint64
	price           PriceSnapshot
	pair            PairState
	history         []domain.TradeReceipt
	settings        domain.TradingSettings
}

// NewSyncStore creates a SyncStore. Polling does not begin until Start is
// called.
func NewSyncStore(cfg Config, api Fetcher, logger *slog.Logger) *SyncStore {
	if cfg.PricePollInterval <= 0 {
		cfg.PricePollInterval = 30 * time.Second
	}
	if cfg.PairPollInterval <= 0 {
		cfg.PairPollInterval = 30 * time.Second
	}
	return &SyncStore{
		cfg:      cfg,
		api:      api,
		logger:   logger.With(slog.String("component", "sync_store")),
		now:      time.Now,
		settings: domain.DefaultTradingSettings(),
	}
}

// Start begins the polling loop. It performs an immediate first poll and
// then refreshes on the configured intervals until Stop is called or the
// parent context is cancelled. Calling Start on a running store is a no-op.
func (s *SyncStore) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// Stop cancels the polling loop and waits for it to exit.
func (s *SyncStore) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *SyncStore) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.pollPrice(ctx)
	s.pollPair(ctx)
	s.loadSettings(ctx)

	priceTicker := time.NewTicker(s.cfg.PricePollInterval)
	defer priceTicker.Stop()
	pairTicker := time.NewTicker(s.cfg.PairPollInterval)
	defer pairTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("polling stopped")
			return
		case <-priceTicker.C:
			s.pollPrice(ctx)
		case <-pairTicker.C:
			s.pollPair(ctx)
		}
	}
}

func (s *SyncStore) pollPrice(ctx context.Context) {
	seq := s.priceSeq.Add(1)
	snap, err := s.api.Price(ctx)
	if err != nil {
		s.logger.Warn("price poll failed", slog.String("error", err.Error()))
		return
	}
	s.applyPrice(seq, snap)
}

func (s *SyncStore) pollPair(ctx context.Context) {
	seq := s.pairSeq.Add(1)
	pair, err := s.api.FetchPair(ctx, s.Address())
	if err != nil {
		s.logger.Warn("pair poll failed", slog.String("error", err.Error()))
		return
	}
	s.applyPair(seq, pair)
}

func (s *SyncStore) loadSettings(ctx context.Context) {
	settings, err := s.api.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("settings load failed", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// applyPrice installs a polled quote unless a newer poll already applied.
func (s *SyncStore) applyPrice(seq uint64, snap PriceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.appliedPriceSeq {
		s.logger.Debug("discarding stale price response", slog.Uint64("seq", seq))
		return
	}
	s.appliedPriceSeq = seq
	s.price = snap
}

func (s *SyncStore) applyPair(seq uint64, pair PairState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.appliedPairSeq {
		s.logger.Debug("discarding stale pair response", slog.Uint64("seq", seq))
		return
	}
	s.appliedPairSeq = seq
	s.pair = pair
}

// Price returns the last polled quote.
func (s *SyncStore) Price() PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price
}

// Pair returns the last polled pair state.
func (s *SyncStore) Pair() PairState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Address returns the wallet address the store is tracking, if any.
func (s *SyncStore) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.Address
}

// History returns a copy of the locally accumulated trade history.
func (s *SyncStore) History() []domain.TradeReceipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TradeReceipt, len(s.history))
	copy(out, s.history)
	return out
}

// Settings returns the last known trading settings.
func (s *SyncStore) Settings() domain.TradingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SaveSettings pushes new trading settings to the server and caches them
// locally on success.
func (s *SyncStore) SaveSettings(ctx context.Context, settings domain.TradingSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.api.SetSettings(ctx, settings); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// CreateWallet asks the server for a new custodial wallet and tracks its
// address.
func (s *SyncStore) CreateWallet(ctx context.Context) (string, error) {
	address, err := s.api.CreateWallet(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.pair.Address = address
	s.mu.Unlock()
	return address, nil
}

// Fund seeds the trading pair and refreshes the local pair state.
func (s *SyncStore) Fund(ctx context.Context, eth, usdc float64) error {
	if err := s.api.SetSwap(ctx, eth, usdc, s.Address()); err != nil {
		return err
	}
	s.refreshPair(ctx)
	return nil
}

// ExecuteSwap executes a full-balance swap, appends the receipt to the local
// history, and refreshes the pair state. Swaps are never retried: the
// operation sweeps the entire source balance and is not idempotent.
func (s *SyncStore) ExecuteSwap(ctx context.Context, action domain.TradeAction) (SwapResult, error) {
	result, err := s.api.Swap(ctx, action)
	if err != nil {
		return SwapResult{}, err
	}

	s.mu.Lock()
	s.history = append(s.history, domain.TradeReceipt{
		Action:      domain.TradeAction(result.Action),
		InAmount:    result.InAmount,
		OutAmount:   result.OutAmount,
		PriceUsed:   result.Price,
		FeeAmount:   result.Fee,
		PriceImpact: result.PriceImpact,
		ExecutedAt:  s.now(),
	})
	s.mu.Unlock()

	s.refreshPair(ctx)
	return result, nil
}

// ReloadHistory replaces the local history with the server's receipt log.
func (s *SyncStore) ReloadHistory(ctx context.Context) error {
	trades, err := s.api.History(ctx, s.Address())
	if err != nil {
		return fmt.Errorf("client: reload history: %w", err)
	}
	s.mu.Lock()
	s.history = trades
	s.mu.Unlock()
	return nil
}

// refreshPair runs one out-of-cadence pair poll, sharing the same sequence
// guard as the background loop.
func (s *SyncStore) refreshPair(ctx context.Context) {
	s.pollPair(ctx)
}
