// Package app provides the top-level application lifecycle for the swap desk.
// It wires together all dependencies (oracle, ledger, wallet custodian, redis
// caches, notifications) and runs the HTTP server, WebSocket hub, and
// background refresh loops until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/halcyonlabs/swapdesk/internal/config"
	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/notify"
	"github.com/halcyonlabs/swapdesk/internal/server"
	"github.com/halcyonlabs/swapdesk/internal/server/handler"
	"github.com/halcyonlabs/swapdesk/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the server
// and background goroutines, and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub for live price/trade pushes.
	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// Push every fresh quote to connected dashboards and alert when the
	// provider chain degrades.
	deps.Oracle.SetOnQuote(func(q domain.PriceQuote) {
		hub.BroadcastQuote(q)
	})
	deps.Oracle.SetOnDegraded(func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := deps.Notifier.Notify(notifyCtx, notify.EventOracleDegraded,
			"Price oracle degraded",
			"All upstream price providers failed this refresh cycle; serving the last known quote.",
		); err != nil {
			a.logger.Warn("degraded notification failed", slog.String("error", err.Error()))
		}
	})

	// Background quote refresh cadence.
	g.Go(func() error {
		return deps.Oracle.Run(ctx)
	})

	// HTTP API server.
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Wallet:   handler.NewWalletHandler(deps.Custodian, deps.Ledger, a.logger),
		Price:    handler.NewPriceHandler(deps.Oracle, a.logger),
		Swap:     handler.NewSwapHandler(deps.Ledger, deps.Oracle, deps.Custodian, hub, deps.Notifier, a.logger),
		Settings: handler.NewSettingsHandler(deps.Agent, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		APIKey:         a.cfg.Server.APIKey,
		SwapRateLimit:  a.cfg.Server.SwapRateLimit,
		SwapRateWindow: a.cfg.Server.SwapRateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
