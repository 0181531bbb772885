package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load reads the TOML file at path on top of Defaults, loads .env if
// present and applies MMBOT_* environment overrides. The result is not
// validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose MMBOT_* variable is set, so
// secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "MMBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.KeyFile, "MMBOT_WALLET_KEY_FILE")
	setStr(&cfg.Wallet.KeyPassword, "MMBOT_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.Address, "MMBOT_WALLET_ADDRESS")

	// ── Exchange / chain ──
	setStr(&cfg.Exchange.BaseURL, "MMBOT_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.Blockchain, "MMBOT_EXCHANGE_BLOCKCHAIN")
	setStr(&cfg.Exchange.Token, "MMBOT_EXCHANGE_TOKEN")
	setDuration(&cfg.Exchange.Timeout, "MMBOT_EXCHANGE_TIMEOUT")
	setStr(&cfg.Chain.RPCURL, "MMBOT_CHAIN_RPC_URL")

	// ── Strategy ──
	setDecimal(&cfg.Strategy.FundMinimum, "MMBOT_STRATEGY_FUND_MINIMUM")
	setDecimal(&cfg.Strategy.TokenLimit, "MMBOT_STRATEGY_TOKEN_LIMIT")
	setDecimal(&cfg.Strategy.Spread, "MMBOT_STRATEGY_SPREAD")
	setDecimal(&cfg.Strategy.DustCutoff, "MMBOT_STRATEGY_DUST_CUTOFF")
	setDecimal(&cfg.Strategy.BandSize, "MMBOT_STRATEGY_BAND_SIZE")
	setDuration(&cfg.Strategy.Interval, "MMBOT_STRATEGY_INTERVAL")
	setDuration(&cfg.Strategy.LockTTL, "MMBOT_STRATEGY_LOCK_TTL")
	setDuration(&cfg.Strategy.DedupTTL, "MMBOT_STRATEGY_DEDUP_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MMBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MMBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MMBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MMBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MMBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MMBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MMBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MMBOT_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "MMBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MMBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MMBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MMBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MMBOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "MMBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MMBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MMBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MMBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MMBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MMBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MMBOT_S3_SECRET_KEY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MMBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MMBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "MMBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "MMBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "MMBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MMBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MMBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MMBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MMBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MMBOT_MODE")
	setStr(&cfg.LogLevel, "MMBOT_LOG_LEVEL")
}

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

func setDecimal(dst *decimalValue, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			dst.Decimal = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
