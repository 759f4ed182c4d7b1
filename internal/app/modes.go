package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/client"
)

// MonitorMode runs the dashboard poller against an already-running swap desk
// instead of serving one. It mirrors the server state through the sync store
// and logs a portfolio line on every poll cycle until the context is
// cancelled.
func (a *App) MonitorMode(ctx context.Context) error {
	if a.cfg.Client.BaseURL == "" {
		return fmt.Errorf("app: monitor mode requires client.base_url")
	}

	api := client.NewAPI(a.cfg.Client.BaseURL, a.cfg.Server.APIKey)
	store := client.NewSyncStore(client.Config{
		PricePollInterval: a.cfg.Client.PollInterval.Duration,
		PairPollInterval:  a.cfg.Client.PollInterval.Duration,
	}, api, a.logger)

	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("base_url", a.cfg.Client.BaseURL),
		slog.Duration("poll_interval", a.cfg.Client.PollInterval.Duration),
	)

	store.Start(ctx)
	defer store.Stop()

	ticker := time.NewTicker(a.cfg.Client.PollInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pl := store.ProfitLoss()
			a.logger.Info("portfolio",
				slog.Float64("price", store.Price().Price),
				slog.Float64("eth", store.Pair().ETH),
				slog.Float64("usdc", store.Pair().USDC),
				slog.Float64("total_value", store.TotalValue()),
				slog.Float64("pnl", pl.Value),
				slog.Float64("pnl_pct", pl.Percentage),
			)
		}
	}
}
