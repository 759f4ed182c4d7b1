package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SWAPDESK_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// A missing config file is not an error: defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SWAPDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "SWAPDESK_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "SWAPDESK_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "SWAPDESK_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.SwapRateLimit, "SWAPDESK_SERVER_SWAP_RATE_LIMIT")
	setDuration(&cfg.Server.SwapRateWindow, "SWAPDESK_SERVER_SWAP_RATE_WINDOW")

	// ── Oracle ──
	setStr(&cfg.Oracle.CoinGeckoURL, "SWAPDESK_ORACLE_COINGECKO_URL")
	setStr(&cfg.Oracle.BinanceURL, "SWAPDESK_ORACLE_BINANCE_URL")
	setStr(&cfg.Oracle.CoinbaseURL, "SWAPDESK_ORACLE_COINBASE_URL")
	setDuration(&cfg.Oracle.RequestTimeout, "SWAPDESK_ORACLE_REQUEST_TIMEOUT")
	setDuration(&cfg.Oracle.RefreshInterval, "SWAPDESK_ORACLE_REFRESH_INTERVAL")
	setDuration(&cfg.Oracle.StaleAfter, "SWAPDESK_ORACLE_STALE_AFTER")
	setFloat64(&cfg.Oracle.SpreadPct, "SWAPDESK_ORACLE_SPREAD_PCT")
	setFloat64(&cfg.Oracle.SeedPrice, "SWAPDESK_ORACLE_SEED_PRICE")

	// ── Swap ──
	setFloat64(&cfg.Swap.FeeRate, "SWAPDESK_SWAP_FEE_RATE")
	setFloat64(&cfg.Swap.MaxImpact, "SWAPDESK_SWAP_MAX_IMPACT")
	setFloat64(&cfg.Swap.BuyImpactUnit, "SWAPDESK_SWAP_BUY_IMPACT_UNIT")
	setFloat64(&cfg.Swap.SellImpactUnit, "SWAPDESK_SWAP_SELL_IMPACT_UNIT")

	// ── Wallet ──
	setStr(&cfg.Wallet.EncryptedKeyPath, "SWAPDESK_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SWAPDESK_WALLET_KEY_PASSWORD")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SWAPDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SWAPDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SWAPDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SWAPDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SWAPDESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SWAPDESK_REDIS_TLS_ENABLED")

	// ── Client ──
	setStr(&cfg.Client.BaseURL, "SWAPDESK_CLIENT_BASE_URL")
	setDuration(&cfg.Client.PollInterval, "SWAPDESK_CLIENT_POLL_INTERVAL")

	// ── Agent ──
	setFloat64(&cfg.Agent.ProfitTargetPct, "SWAPDESK_AGENT_PROFIT_TARGET_PCT")
	setFloat64(&cfg.Agent.StopLossPct, "SWAPDESK_AGENT_STOP_LOSS_PCT")
	setStr(&cfg.Agent.RiskLevel, "SWAPDESK_AGENT_RISK_LEVEL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SWAPDESK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SWAPDESK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SWAPDESK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SWAPDESK_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SWAPDESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
