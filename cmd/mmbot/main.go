// Command mmbot runs the Saturn market maker. It loads configuration,
// validates it, wires dependencies, sets up signal handling and starts the
// bot in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/saturn-network/market-maker-strategy/internal/app"
	"github.com/saturn-network/market-maker-strategy/internal/config"
	"github.com/saturn-network/market-maker-strategy/internal/crypto"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (trade, monitor, once, server)")
	encryptTo := flag.String("encrypt-key", "", "encrypt MMBOT_WALLET_PRIVATE_KEY with MMBOT_WALLET_KEY_PASSWORD into this file and exit")
	flag.Parse()

	if *encryptTo != "" {
		if err := encryptKey(*encryptTo); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt key: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "wrote encrypted key to %s\n", *encryptTo)
		return 0
	}

	logger := newLogger(os.Stdout, "info")
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return 1
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	// Once mode prints its report on stdout; keep logs off it.
	var logOut io.Writer = os.Stdout
	if cfg.Mode == "once" {
		logOut = os.Stderr
	}
	logger = newLogger(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("market maker starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.String("token", cfg.Exchange.Token),
	)
	logger.Debug("effective configuration", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
	}

	logger.Info("market maker stopped")
	return 0
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func encryptKey(path string) error {
	key := os.Getenv("MMBOT_WALLET_PRIVATE_KEY")
	password := os.Getenv("MMBOT_WALLET_KEY_PASSWORD")
	if key == "" || password == "" {
		return errors.New("set MMBOT_WALLET_PRIVATE_KEY and MMBOT_WALLET_KEY_PASSWORD")
	}
	data, err := crypto.EncryptKey(key, password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
