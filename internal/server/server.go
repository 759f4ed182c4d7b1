package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/server/handler"
	"github.com/halcyonlabs/swapdesk/internal/server/middleware"
	"github.com/halcyonlabs/swapdesk/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// SwapRateLimit / SwapRateWindow throttle swap execution per client IP.
	// Applied only when a rate limiter is wired in.
	SwapRateLimit  int
	SwapRateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Wallet   *handler.WalletHandler
	Price    *handler.PriceHandler
	Swap     *handler.SwapHandler
	Settings *handler.SettingsHandler
}

// Server is the HTTP + WebSocket API server for the swap desk.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
// limiter may be nil, in which case swap execution is not rate limited.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)

	// Wallet endpoints.
	mux.HandleFunc("POST /create-wallet", handlers.Wallet.CreateWallet)
	mux.HandleFunc("POST /check-balances", handlers.Wallet.CheckBalances)

	// Trading pair endpoints.
	mux.HandleFunc("POST /set_swap", handlers.Swap.SetSwap)
	mux.HandleFunc("POST /fetch_pair", handlers.Swap.FetchPair)

	// Price endpoint.
	mux.HandleFunc("POST /price", handlers.Price.GetPrice)

	// Swap execution, rate limited per client IP when a limiter is present.
	var swapExec http.Handler = http.HandlerFunc(handlers.Swap.Execute)
	if limiter != nil {
		swapExec = middleware.RateLimit(limiter, cfg.SwapRateLimit, cfg.SwapRateWindow)(swapExec)
	}
	mux.Handle("POST /swap", swapExec)

	// Trade history.
	mux.HandleFunc("POST /history", handlers.Swap.History)

	// Agent settings endpoints.
	mux.HandleFunc("POST /get_settings", handlers.Settings.GetSettings)
	mux.HandleFunc("POST /set_settings", handlers.Settings.SetSettings)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
