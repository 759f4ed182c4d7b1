package client

import (
	"math"
	"math/rand"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
)

// ProfitLoss is the portfolio performance derived from the trade history and
// the current balances.
type ProfitLoss struct {
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// ChartPoint is one sample of the derived price series.
type ChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// TotalValue returns the current portfolio value in the quote asset:
// baseBalance at the mid price plus the quote balance.
func (s *SyncStore) TotalValue() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.ETH*s.price.Price + s.pair.USDC
}

// ProfitLoss reconciles the trade history against the current balances.
// Buy trades contribute the quote amount spent; sell trades contribute the
// quote amount received and the base amount given up, valued at the current
// mid price. The percentage is 0 when there is no reference value yet.
func (s *SyncStore) ProfitLoss() ProfitLoss {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var spentQuote, receivedQuote, spentBase float64
	for _, t := range s.history {
		switch t.Action {
		case domain.ActionBuy:
			spentQuote += t.InAmount
		case domain.ActionSell:
			spentBase += t.InAmount
			receivedQuote += t.OutAmount
		}
	}

	mid := s.price.Price
	initial := spentQuote + receivedQuote - spentBase*mid
	current := s.pair.ETH*mid + s.pair.USDC

	value := current - initial
	pct := 0.0
	if initial != 0 {
		pct = value / initial * 100
	}
	return ProfitLoss{Value: value, Percentage: pct}
}

// ChartSeries derives an n-point price series ending at the current mid
// price: a random walk seeded from the quote so repeated calls with the same
// quote produce the same series. Data only, rendering is the dashboard's job.
func (s *SyncStore) ChartSeries(n int) []ChartPoint {
	if n <= 0 {
		return nil
	}

	s.mu.RLock()
	mid := s.price.Price
	step := s.cfg.PricePollInterval
	s.mu.RUnlock()

	if mid <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(int64(math.Float64bits(mid))))
	now := s.now()

	points := make([]ChartPoint, n)
	price := mid
	// Walk backwards from now so the final point is the live price.
	for i := n - 1; i >= 0; i-- {
		points[i] = ChartPoint{
			Timestamp: now.Add(-time.Duration(n-1-i) * step).UnixMilli(),
			Price:     price,
		}
		price *= 1 + (rng.Float64()-0.5)*0.008
	}
	return points
}
