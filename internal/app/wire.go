package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/halcyonlabs/swapdesk/internal/agent"
	"github.com/halcyonlabs/swapdesk/internal/cache/redis"
	"github.com/halcyonlabs/swapdesk/internal/config"
	"github.com/halcyonlabs/swapdesk/internal/domain"
	"github.com/halcyonlabs/swapdesk/internal/ledger"
	"github.com/halcyonlabs/swapdesk/internal/notify"
	"github.com/halcyonlabs/swapdesk/internal/oracle"
	"github.com/halcyonlabs/swapdesk/internal/wallet"
)

// Dependencies bundles every domain-level dependency the application needs to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Oracle    *oracle.Oracle
	Ledger    *ledger.Ledger
	Custodian *wallet.Custodian
	Agent     *agent.Agent

	// Redis-backed, nil unless redis.addr is configured.
	QuoteCache  domain.QuoteCache
	RateLimiter domain.RateLimiter

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (optional: quote warm start + swap rate limiting) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Price oracle with its provider fallback chain ---
	var providers []oracle.Provider
	if cfg.Oracle.CoinGeckoURL != "" {
		providers = append(providers, oracle.NewCoinGeckoProvider(cfg.Oracle.CoinGeckoURL, cfg.Oracle.RequestTimeout.Duration))
	}
	if cfg.Oracle.BinanceURL != "" {
		providers = append(providers, oracle.NewBinanceProvider(cfg.Oracle.BinanceURL, cfg.Oracle.RequestTimeout.Duration))
	}
	if cfg.Oracle.CoinbaseURL != "" {
		providers = append(providers, oracle.NewCoinbaseProvider(cfg.Oracle.CoinbaseURL, cfg.Oracle.RequestTimeout.Duration))
	}

	deps.Oracle = oracle.New(oracle.Config{
		SpreadPct:       cfg.Oracle.SpreadPct,
		StaleAfter:      cfg.Oracle.StaleAfter.Duration,
		RefreshInterval: cfg.Oracle.RefreshInterval.Duration,
		SeedPrice:       cfg.Oracle.SeedPrice,
	}, providers, deps.QuoteCache, logger)

	// --- Swap ledger ---
	deps.Ledger = ledger.New(ledger.Config{
		FeeRate:        cfg.Swap.FeeRate,
		MaxImpact:      cfg.Swap.MaxImpact,
		BuyImpactUnit:  cfg.Swap.BuyImpactUnit,
		SellImpactUnit: cfg.Swap.SellImpactUnit,
	}, deps.Oracle, logger)

	// --- Custodial wallet ---
	custodian, err := wallet.NewCustodian(cfg.Wallet.EncryptedKeyPath, cfg.Wallet.KeyPassword, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	deps.Custodian = custodian

	// --- Agent stub ---
	settings := domain.TradingSettings{
		ProfitTargetPct: cfg.Agent.ProfitTargetPct,
		StopLossPct:     cfg.Agent.StopLossPct,
		RiskLevel:       domain.RiskLevel(cfg.Agent.RiskLevel),
	}
	deps.Agent = agent.New(settings, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
