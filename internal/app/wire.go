package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/saturn-network/market-maker-strategy/internal/blob/s3"
	"github.com/saturn-network/market-maker-strategy/internal/cache/redis"
	"github.com/saturn-network/market-maker-strategy/internal/config"
	"github.com/saturn-network/market-maker-strategy/internal/crypto"
	"github.com/saturn-network/market-maker-strategy/internal/domain"
	"github.com/saturn-network/market-maker-strategy/internal/notify"
	"github.com/saturn-network/market-maker-strategy/internal/platform/chain"
	"github.com/saturn-network/market-maker-strategy/internal/platform/saturn"
	"github.com/saturn-network/market-maker-strategy/internal/server/handler"
	"github.com/saturn-network/market-maker-strategy/internal/store/postgres"
)

// Dependencies bundles what the modes run on. Optional parts are nil when
// their section is disabled or the mode does not need them.
type Dependencies struct {
	Signer  *crypto.Signer // nil without a configured key
	Address string

	Exchange *saturn.Client
	Chain    *chain.Provider

	Actions domain.ActionStore
	Audit   domain.AuditStore

	Locks   domain.LockManager
	Charts  domain.ChartCache
	Bus     domain.SignalBus
	Limiter domain.RateLimiter

	Archiver *s3blob.Archiver

	Notifier *notify.Notifier

	// Health holds one probe per connected backend for /api/health.
	Health map[string]handler.Pinger
}

func usesPostgres(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.Mode)
	return mode == "server" || (mode != "once" && cfg.Postgres.Enabled)
}

func usesRedis(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.Mode)
	return mode == "server" || (mode != "once" && cfg.Redis.Enabled)
}

func usesS3(cfg *config.Config) bool {
	return cfg.S3.Enabled && strings.ToLower(cfg.Mode) != "once"
}

func usesChain(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) != "server"
}

// Wire builds the dependencies the configured mode needs and returns them
// with a cleanup function releasing them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Health: map[string]handler.Pinger{}}

	// --- Wallet ---
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.KeyFile != "" {
		key, err := crypto.LoadKey(crypto.KeySource{
			PrivateKey: cfg.Wallet.PrivateKey,
			KeyFile:    cfg.Wallet.KeyFile,
			Password:   cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: wallet: %w", err))
		}
		signer, err := crypto.NewSigner(key)
		if err != nil {
			return fail(fmt.Errorf("wire: wallet: %w", err))
		}
		deps.Signer = signer
		deps.Address = signer.Address().Hex()
	} else {
		deps.Address = cfg.Wallet.Address
	}

	// --- Exchange and chain ---
	deps.Exchange = saturn.NewClient(saturn.Config{
		BaseURL:    cfg.Exchange.BaseURL,
		Blockchain: cfg.Exchange.Blockchain,
		Token:      cfg.Exchange.Token,
		Timeout:    cfg.Exchange.Timeout.Duration,
	}, deps.Signer)

	if usesChain(cfg) {
		provider, eth, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Exchange.Token)
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		closers = append(closers, eth.Close)
		deps.Chain = provider
	}

	// --- PostgreSQL ---
	if usesPostgres(cfg) {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: %w", err))
			}
		}
		deps.Actions = postgres.NewActionStore(pg.Pool())
		deps.Audit = postgres.NewAuditStore(pg.Pool())
		deps.Health["postgres"] = func(ctx context.Context) error { return pg.Pool().Ping(ctx) }
	}

	// --- Redis ---
	if usesRedis(cfg) {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.Locks = redis.NewLockManager(rc)
		deps.Charts = redis.NewChartCache(rc, cfg.Redis.ChartTTL.Duration)
		deps.Bus = redis.NewSignalBus(rc)
		deps.Limiter = redis.NewRateLimiter(rc)
		deps.Health["redis"] = rc.Ping
	}

	// --- S3 ---
	if usesS3(cfg) {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(sc), deps.Actions, deps.Audit)
		deps.Health["s3"] = sc.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
