// Package config defines the market maker's configuration and its
// validation rules.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config is the root configuration. Fields come from a TOML file and may be
// overridden by MMBOT_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Exchange ExchangeConfig `toml:"exchange"`
	Chain    ChainConfig    `toml:"chain"`
	Strategy StrategyConfig `toml:"strategy"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the bot wallet credentials.
type WalletConfig struct {
	PrivateKey  string `toml:"private_key"`
	KeyFile     string `toml:"key_file"`
	KeyPassword string `toml:"key_password"`
	// Address is used when no key is configured (monitor, once, server).
	Address string `toml:"address"`
}

// ExchangeConfig selects the exchange endpoint and traded pair.
type ExchangeConfig struct {
	BaseURL    string   `toml:"base_url"`
	Blockchain string   `toml:"blockchain"`
	Token      string   `toml:"token"`
	Timeout    duration `toml:"timeout"`
}

// ChainConfig points at the node balances are read from.
type ChainConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// StrategyConfig holds the market-making parameters and cycle scheduling.
type StrategyConfig struct {
	FundMinimum decimalValue `toml:"fund_minimum"`
	TokenLimit  decimalValue `toml:"token_limit"`
	Spread      decimalValue `toml:"spread"`
	DustCutoff  decimalValue `toml:"dust_cutoff"`
	BandSize    decimalValue `toml:"band_size"`

	Interval duration `toml:"interval"`
	LockTTL  duration `toml:"lock_ttl"`
	DedupTTL duration `toml:"dedup_ttl"`
	History  int      `toml:"history"`
}

// PostgresConfig holds the action and audit database connection.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the Redis connection used for locks, charts and the
// cycle bus.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	ChartTTL   duration `toml:"chart_ttl"`
}

// S3Config holds the chart archive bucket.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the status server settings.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"` // requests per minute per client, needs redis
}

// NotifyConfig holds alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so it can be decoded from a TOML string such
// as "30s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// decimalValue decodes a TOML string or integer into an exact decimal.
// Floats are rejected so no amount ever passes through float64.
type decimalValue struct {
	decimal.Decimal
}

func (d *decimalValue) UnmarshalText(text []byte) error {
	v, err := decimal.NewFromString(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Decimal = v
	return nil
}

func (d *decimalValue) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		return d.UnmarshalText([]byte(t))
	case int64:
		d.Decimal = decimal.NewFromInt(t)
		return nil
	case float64:
		return fmt.Errorf("decimal value %v must be quoted, e.g. \"%v\"", t, t)
	default:
		return fmt.Errorf("unsupported decimal value %T", v)
	}
}

func (d decimalValue) MarshalText() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

func dec(s string) decimalValue {
	return decimalValue{decimal.RequireFromString(s)}
}

// Defaults returns a Config with production defaults.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			BaseURL:    "https://ticker.saturn.network",
			Blockchain: "ETC",
			Timeout:    duration{15 * time.Second},
		},
		Chain: ChainConfig{
			RPCURL: "https://etc.rivet.link",
		},
		Strategy: StrategyConfig{
			FundMinimum: dec("0.1"),
			TokenLimit:  dec("0"),
			Spread:      dec("0.0001"),
			DustCutoff:  dec("0.01"),
			BandSize:    dec("3"),
			Interval:    duration{time.Minute},
			LockTTL:     duration{5 * time.Minute},
			DedupTTL:    duration{10 * time.Minute},
			History:     100,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "mmbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			ChartTTL:   duration{10 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "mmbot-charts",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"thin_book", "arbitrage", "cycle_error", "order_failed"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"once":    true,
	"server":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks every field and returns one error listing all problems.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, once, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet
	if mode == "trade" {
		if c.Wallet.PrivateKey == "" && c.Wallet.KeyFile == "" {
			errs = append(errs, "wallet: private_key or key_file is required for mode trade")
		}
		if c.Wallet.KeyFile != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when key_file is set")
		}
	} else if mode != "server" && c.Wallet.PrivateKey == "" && c.Wallet.KeyFile == "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, "wallet: address (or a key) is required for mode "+c.Mode)
	}

	// Exchange
	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if c.Exchange.Blockchain == "" {
		errs = append(errs, "exchange: blockchain must not be empty")
	}
	if !common.IsHexAddress(c.Exchange.Token) {
		errs = append(errs, fmt.Sprintf("exchange: token %q is not a contract address", c.Exchange.Token))
	}

	// Chain
	if mode != "server" && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}

	// Strategy
	s := c.Strategy
	if s.FundMinimum.Sign() < 0 {
		errs = append(errs, "strategy: fund_minimum must be >= 0")
	}
	if s.TokenLimit.Sign() < 0 {
		errs = append(errs, "strategy: token_limit must be >= 0")
	}
	if s.Spread.Sign() <= 0 {
		errs = append(errs, "strategy: spread must be > 0")
	}
	if s.DustCutoff.Sign() < 0 {
		errs = append(errs, "strategy: dust_cutoff must be >= 0")
	}
	if s.BandSize.Sign() <= 0 {
		errs = append(errs, "strategy: band_size must be > 0")
	}
	if s.Interval.Duration <= 0 {
		errs = append(errs, "strategy: interval must be > 0")
	}
	if s.LockTTL.Duration < s.Interval.Duration {
		errs = append(errs, "strategy: lock_ttl must be at least interval")
	}

	// Postgres
	needsStores := mode == "server"
	if c.Postgres.Enabled || needsStores {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled || needsStores {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Enabled || mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
