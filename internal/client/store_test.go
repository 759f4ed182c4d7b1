package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// fakeAPI is an in-memory Fetcher.
type fakeAPI struct {
	mu         sync.Mutex
	price      PriceSnapshot
	pair       PairState
	swapResult SwapResult
	swapErr    error
	settings   domain.TradingSettings
	priceCalls int
	pairCalls  int
}

func (f *fakeAPI) Price(ctx context.Context) (PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	return f.price, nil
}

func (f *fakeAPI) FetchPair(ctx context.Context, address string) (PairState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairCalls++
	return f.pair, nil
}

func (f *fakeAPI) CreateWallet(ctx context.Context) (string, error) {
	return "0x2af47a65da8CD66729b4989dB595268E6b3a336E", nil
}

func (f *fakeAPI) SetSwap(ctx context.Context, eth, usdc float64, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair.ETH, f.pair.USDC = eth, usdc
	return nil
}

func (f *fakeAPI) Swap(ctx context.Context, action domain.TradeAction) (SwapResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.swapErr != nil {
		return SwapResult{}, f.swapErr
	}
	r := f.swapResult
	r.Action = string(action)
	return r, nil
}

func (f *fakeAPI) History(ctx context.Context, address string) ([]domain.TradeReceipt, error) {
	return nil, nil
}

func (f *fakeAPI) GetSettings(ctx context.Context) (domain.TradingSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeAPI) SetSettings(ctx context.Context, s domain.TradingSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = s
	return nil
}

func testStore(api *fakeAPI) *SyncStore {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSyncStore(Config{
		PricePollInterval: 10 * time.Millisecond,
		PairPollInterval:  10 * time.Millisecond,
	}, api, logger)
}

func TestSyncStore_PollsAndStops(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		price: PriceSnapshot{Price: 50, BuyPrice: 50.25, SellPrice: 49.75},
		pair:  PairState{ETH: 1, USDC: 200},
	}
	s := testStore(api)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Price().Price == 50 && s.Pair().USDC == 200
	}, time.Second, time.Millisecond)

	s.Stop()
	api.mu.Lock()
	calls := api.priceCalls
	api.mu.Unlock()

	// No polls after Stop.
	time.Sleep(50 * time.Millisecond)
	api.mu.Lock()
	assert.Equal(t, calls, api.priceCalls)
	api.mu.Unlock()
}

func TestSyncStore_StartThenImmediateStop(t *testing.T) {
	t.Parallel()

	s := testStore(&fakeAPI{})

	// Stop landing right after Start must wait for the loop, not panic,
	// even when the loop has not executed its first statement yet.
	for i := 0; i < 500; i++ {
		s.Start(context.Background())
		s.Stop()
	}
	s.Stop()
}

func TestSyncStore_DiscardsOutOfOrderResponses(t *testing.T) {
	t.Parallel()

	s := testStore(&fakeAPI{})

	s.applyPrice(2, PriceSnapshot{Price: 51})
	s.applyPrice(1, PriceSnapshot{Price: 50})

	assert.Equal(t, 51.0, s.Price().Price, "a late response must not overwrite a newer state")

	s.applyPair(3, PairState{USDC: 300})
	s.applyPair(2, PairState{USDC: 100})
	assert.Equal(t, 300.0, s.Pair().USDC)
}

func TestSyncStore_ExecuteSwapAppendsHistory(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		swapResult: SwapResult{InAmount: 100, OutAmount: 1.9841, Price: 50.25, Fee: 0.3},
		pair:       PairState{ETH: 1.9841, USDC: 0},
	}
	s := testStore(api)

	result, err := s.ExecuteSwap(context.Background(), domain.ActionBuy)
	require.NoError(t, err)
	assert.Equal(t, "buy", result.Action)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionBuy, history[0].Action)
	assert.InDelta(t, 100.0, history[0].InAmount, 1e-9)

	// The post-swap pair refresh is applied.
	assert.InDelta(t, 1.9841, s.Pair().ETH, 1e-9)
}

func TestSyncStore_ExecuteSwapError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{swapErr: errors.New("bad request: insufficient balance")}
	s := testStore(api)

	_, err := s.ExecuteSwap(context.Background(), domain.ActionSell)
	require.Error(t, err)
	assert.Empty(t, s.History(), "failed swaps leave no receipt")
}

func TestSyncStore_CreateWalletTracksAddress(t *testing.T) {
	t.Parallel()

	s := testStore(&fakeAPI{})

	address, err := s.CreateWallet(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, address)
	assert.Equal(t, address, s.Address())
}

func TestSyncStore_SaveSettings(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{settings: domain.DefaultTradingSettings()}
	s := testStore(api)

	next := domain.TradingSettings{ProfitTargetPct: 0.2, StopLossPct: 0.1, RiskLevel: domain.RiskHigh}
	require.NoError(t, s.SaveSettings(context.Background(), next))
	assert.Equal(t, next, s.Settings())

	bad := domain.TradingSettings{ProfitTargetPct: -1, StopLossPct: 0.1, RiskLevel: domain.RiskLow}
	err := s.SaveSettings(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, next, s.Settings(), "invalid settings are not applied")
}
