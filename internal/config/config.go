// Package config defines the top-level configuration for swapdesk and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SWAPDESK_* environment variables.
type Config struct {
	Server   ServerConfig `toml:"server"`
	Oracle   OracleConfig `toml:"oracle"`
	Swap     SwapConfig   `toml:"swap"`
	Wallet   WalletConfig `toml:"wallet"`
	Redis    RedisConfig  `toml:"redis"`
	Client   ClientConfig `toml:"client"`
	Agent    AgentConfig  `toml:"agent"`
	Notify   NotifyConfig `toml:"notify"`
	LogLevel string       `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables bearer/X-API-Key authentication when non-empty.
	APIKey string `toml:"api_key"`
	// SwapRateLimit caps /swap requests per client per SwapRateWindow.
	// Enforced only when Redis is configured.
	SwapRateLimit  int      `toml:"swap_rate_limit"`
	SwapRateWindow duration `toml:"swap_rate_window"`
}

// OracleConfig holds price oracle parameters: the upstream provider endpoints
// in priority order and the refresh/staleness policy.
type OracleConfig struct {
	CoinGeckoURL    string   `toml:"coingecko_url"`
	BinanceURL      string   `toml:"binance_url"`
	CoinbaseURL     string   `toml:"coinbase_url"`
	RequestTimeout  duration `toml:"request_timeout"`
	RefreshInterval duration `toml:"refresh_interval"`
	StaleAfter      duration `toml:"stale_after"`
	// SpreadPct is the half-spread applied around the mid price (0.005 = 0.5%).
	SpreadPct float64 `toml:"spread_pct"`
	// SeedPrice is served until the first successful upstream fetch.
	SeedPrice float64 `toml:"seed_price"`
}

// SwapConfig holds the fee and price-impact model parameters.
type SwapConfig struct {
	// FeeRate is the per-trade fee (0.003 = 0.3%).
	FeeRate float64 `toml:"fee_rate"`
	// MaxImpact caps the reported price impact (0.05 = 5%).
	MaxImpact float64 `toml:"max_impact"`
	// BuyImpactUnit divides the USDC notional to produce the buy impact.
	BuyImpactUnit float64 `toml:"buy_impact_unit"`
	// SellImpactUnit divides the ETH notional to produce the sell impact.
	SellImpactUnit float64 `toml:"sell_impact_unit"`
}

// WalletConfig holds custodial key storage parameters.
type WalletConfig struct {
	// EncryptedKeyPath, when set, persists generated keys encrypted at rest.
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// RedisConfig holds Redis connection parameters. Leave Addr empty to run
// without Redis (no quote warm start, no swap rate limiting).
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ClientConfig holds parameters for the client-side sync store.
type ClientConfig struct {
	BaseURL      string   `toml:"base_url"`
	PollInterval duration `toml:"poll_interval"`
}

// AgentConfig seeds the agent's trading settings.
type AgentConfig struct {
	ProfitTargetPct float64 `toml:"profit_target_pct"`
	StopLossPct     float64 `toml:"stop_loss_pct"`
	RiskLevel       string  `toml:"risk_level"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			SwapRateLimit:  10,
			SwapRateWindow: duration{time.Minute},
		},
		Oracle: OracleConfig{
			CoinGeckoURL:    "https://api.coingecko.com",
			BinanceURL:      "https://api.binance.com",
			CoinbaseURL:     "https://api.coinbase.com",
			RequestTimeout:  duration{10 * time.Second},
			RefreshInterval: duration{time.Minute},
			StaleAfter:      duration{10 * time.Minute},
			SpreadPct:       0.005,
			SeedPrice:       48.75,
		},
		Swap: SwapConfig{
			FeeRate:        0.003,
			MaxImpact:      0.05,
			BuyImpactUnit:  5000,
			SellImpactUnit: 100,
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Client: ClientConfig{
			BaseURL:      "http://localhost:5000",
			PollInterval: duration{30 * time.Second},
		},
		Agent: AgentConfig{
			ProfitTargetPct: 0.10,
			StopLossPct:     0.05,
			RiskLevel:       "medium",
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "oracle_degraded"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validRiskLevels enumerates the accepted values for Agent.RiskLevel.
var validRiskLevels = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.SwapRateLimit < 1 {
		errs = append(errs, "server: swap_rate_limit must be >= 1")
	}
	if c.Server.SwapRateWindow.Duration <= 0 {
		errs = append(errs, "server: swap_rate_window must be > 0")
	}

	// Oracle
	if c.Oracle.CoinGeckoURL == "" && c.Oracle.BinanceURL == "" && c.Oracle.CoinbaseURL == "" {
		errs = append(errs, "oracle: at least one provider URL must be set")
	}
	if c.Oracle.RequestTimeout.Duration <= 0 {
		errs = append(errs, "oracle: request_timeout must be > 0")
	}
	if c.Oracle.RefreshInterval.Duration <= 0 {
		errs = append(errs, "oracle: refresh_interval must be > 0")
	}
	if c.Oracle.StaleAfter.Duration <= 0 {
		errs = append(errs, "oracle: stale_after must be > 0")
	}
	if c.Oracle.SpreadPct < 0 || c.Oracle.SpreadPct >= 1 {
		errs = append(errs, fmt.Sprintf("oracle: spread_pct must be in [0, 1), got %g", c.Oracle.SpreadPct))
	}
	if c.Oracle.SeedPrice <= 0 {
		errs = append(errs, "oracle: seed_price must be > 0")
	}

	// Swap
	if c.Swap.FeeRate < 0 || c.Swap.FeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("swap: fee_rate must be in [0, 1), got %g", c.Swap.FeeRate))
	}
	if c.Swap.MaxImpact <= 0 || c.Swap.MaxImpact > 1 {
		errs = append(errs, "swap: max_impact must be in (0, 1]")
	}
	if c.Swap.BuyImpactUnit <= 0 {
		errs = append(errs, "swap: buy_impact_unit must be > 0")
	}
	if c.Swap.SellImpactUnit <= 0 {
		errs = append(errs, "swap: sell_impact_unit must be > 0")
	}

	// Wallet — password is required only when persisting keys.
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Redis (only when enabled)
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Client
	if c.Client.PollInterval.Duration <= 0 {
		errs = append(errs, "client: poll_interval must be > 0")
	}

	// Agent
	if !validRiskLevels[strings.ToLower(c.Agent.RiskLevel)] {
		errs = append(errs, fmt.Sprintf("agent: unknown risk_level %q (valid: low, medium, high)", c.Agent.RiskLevel))
	}
	if c.Agent.ProfitTargetPct <= 0 {
		errs = append(errs, "agent: profit_target_pct must be > 0")
	}
	if c.Agent.StopLossPct <= 0 || c.Agent.StopLossPct >= 1 {
		errs = append(errs, "agent: stop_loss_pct must be in (0, 1)")
	}

	// Notify — telegram credentials must be set together, or not at all.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
