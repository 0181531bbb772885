package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
	"github.com/saturn-network/market-maker-strategy/internal/executor"
	"github.com/saturn-network/market-maker-strategy/internal/server"
	"github.com/saturn-network/market-maker-strategy/internal/server/handler"
	"github.com/saturn-network/market-maker-strategy/internal/server/ws"
	"github.com/saturn-network/market-maker-strategy/internal/strategy"
)

const (
	shutdownTimeout = 10 * time.Second
	archiveInterval = time.Hour
)

// TradeMode runs the cycle loop against the live exchange, plus the status
// server and the daily action archive when configured.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode", slog.String("address", deps.Address))

	exec := executor.New(deps.Exchange, executor.Options{
		Store:    deps.Actions,
		Notifier: a.alerts(deps),
		DedupTTL: a.cfg.Strategy.DedupTTL.Duration,
	}, a.logger)
	return a.runLoop(ctx, deps, exec)
}

// MonitorMode runs the same loop but only logs and records what it would do.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode", slog.String("address", deps.Address))
	return a.runLoop(ctx, deps, executor.NewDryRun(deps.Actions, a.logger))
}

func (a *App) runLoop(ctx context.Context, deps *Dependencies, exec strategy.Executor) error {
	g, ctx := errgroup.WithContext(ctx)

	runner := a.newRunner(deps, exec)
	g.Go(func() error {
		return runner.Run(ctx)
	})

	if deps.Archiver != nil && deps.Actions != nil {
		g.Go(func() error {
			return a.archiveLoop(ctx, deps)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, runner, a.runnerStatus(deps, runner))
	}

	return g.Wait()
}

// OnceMode runs a single dry cycle and prints the chart and the actions it
// would take.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	runner := a.newRunner(deps, executor.NewDryRun(nil, a.logger))
	res, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, res.Decision.Chart)
	s := res.Decision.Snapshot
	fmt.Fprintf(a.stdout, "best buy %s  best sell %s  spread %s  weighted mid %s\n",
		s.BestBuyPrice, s.BestSellPrice, s.Spread, s.WeightedMidPrice)
	if len(res.Decision.Actions) == 0 {
		fmt.Fprintln(a.stdout, "no actions")
		return nil
	}
	for _, act := range res.Decision.Actions {
		fmt.Fprintln(a.stdout, executor.Describe(act))
	}
	return nil
}

// ServerMode serves the status API and relays cycle summaries published by
// bots running elsewhere.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil, a.cacheStatus(deps))
	return g.Wait()
}

// newRunner builds the decision engine and cycle runner on deps.
func (a *App) newRunner(deps *Dependencies, exec strategy.Executor) *strategy.Runner {
	st := a.cfg.Strategy

	observers := strategy.Observers{strategy.NewLogObserver(a.logger)}
	if n := a.alerts(deps); n != nil {
		observers = append(observers, strategy.NewNotifyObserver(n, a.logger))
	}
	if deps.Audit != nil {
		observers = append(observers, strategy.NewAuditObserver(deps.Audit, a.logger))
	}

	decider := strategy.NewDecider(strategy.Config{
		FundMinimum: st.FundMinimum.Decimal,
		TokenLimit:  st.TokenLimit.Decimal,
		Spread:      st.Spread.Decimal,
		DustCutoff:  st.DustCutoff.Decimal,
		BandSize:    st.BandSize.Decimal,
	}, observers)

	rd := strategy.RunnerDeps{
		Source:   deps.Exchange,
		Balances: deps.Chain,
		Decider:  decider,
		Executor: exec,
		Locks:    deps.Locks,
		Charts:   deps.Charts,
		Bus:      deps.Bus,
		Audit:    deps.Audit,
	}
	if deps.Archiver != nil {
		rd.Archive = deps.Archiver
	}
	if n := a.alerts(deps); n != nil {
		rd.Notifier = n
	}

	return strategy.NewRunner(strategy.RunnerConfig{
		Address:  deps.Address,
		Token:    a.cfg.Exchange.Token,
		Interval: st.Interval.Duration,
		LockTTL:  st.LockTTL.Duration,
		History:  st.History,
	}, rd, a.logger)
}

// alerts returns the notifier when at least one sender is configured, nil
// otherwise.
func (a *App) alerts(deps *Dependencies) strategy.Notifier {
	if deps.Notifier == nil || !deps.Notifier.Enabled() {
		return nil
	}
	return deps.Notifier
}

func (a *App) runnerStatus(deps *Dependencies, runner *strategy.Runner) func() domain.BotStatus {
	return func() domain.BotStatus {
		return domain.BotStatus{
			Mode:          strings.ToLower(a.cfg.Mode),
			Address:       deps.Address,
			Token:         a.cfg.Exchange.Token,
			UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
			LastCycleAt:   runner.LastRun(),
		}
	}
}

// cacheStatus reports the last cycle as the render time of the cached
// chart, the only trace a remote bot leaves in this process.
func (a *App) cacheStatus(deps *Dependencies) func() domain.BotStatus {
	return func() domain.BotStatus {
		st := domain.BotStatus{
			Mode:          strings.ToLower(a.cfg.Mode),
			Address:       deps.Address,
			Token:         a.cfg.Exchange.Token,
			UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
		}
		if deps.Charts == nil {
			return st
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if entry, err := deps.Charts.GetChart(ctx, a.cfg.Exchange.Token); err == nil {
			st.LastCycleAt = entry.RenderedAt
		}
		return st
	}
}

// startHTTPServer adds the HTTP server, its shutdown watcher and the
// WebSocket hub to g. history may be nil when no runner lives in this
// process.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	history handler.CycleHistory,
	status func() domain.BotStatus,
) {
	h := server.Handlers{
		Health: handler.NewHealthHandler(deps.Health, a.logger),
		Status: handler.NewStatusHandler(status),
	}
	if deps.Charts != nil {
		h.Chart = handler.NewChartHandler(deps.Charts, a.cfg.Exchange.Token, a.logger)
	}
	if deps.Actions != nil {
		h.Actions = handler.NewActionHandler(deps.Actions, a.logger)
	}
	if deps.Audit != nil {
		h.Audit = handler.NewAuditHandler(deps.Audit, a.logger)
	}
	if history != nil {
		h.Cycles = handler.NewCycleHandler(history)
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, map[string]string{strategy.CycleChannel: "cycle"}, status, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: ws hub: %w", err)
			}
			return nil
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, h, hub, deps.Limiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// archiveLoop exports the previous UTC day's actions to object storage once
// per day. A Redis lock per day keeps several bots sharing a database from
// uploading the same file; it is held until it expires once the upload
// succeeded.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	logger := a.logger.With(slog.String("component", "archive"))
	var done string

	run := func() {
		day := time.Now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)
		key := day.Format("2006-01-02")
		if key == done {
			return
		}
		if deps.Locks != nil {
			unlock, err := deps.Locks.Acquire(ctx, "lock:archive:"+key, 24*time.Hour)
			if errors.Is(err, domain.ErrLockHeld) {
				done = key
				return
			}
			if err != nil {
				logger.Warn("archive lock failed", slog.String("error", err.Error()))
				return
			}
			if !a.archiveDay(ctx, logger, deps, day) {
				unlock()
				return
			}
		} else if !a.archiveDay(ctx, logger, deps, day) {
			return
		}
		done = key
	}

	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()
	for {
		run()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) archiveDay(ctx context.Context, logger *slog.Logger, deps *Dependencies, day time.Time) bool {
	n, err := deps.Archiver.ArchiveActions(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		logger.Warn("archive actions failed", slog.String("day", day.Format("2006-01-02")), slog.String("error", err.Error()))
		return false
	}
	logger.Info("actions archived", slog.String("day", day.Format("2006-01-02")), slog.Int("count", n))
	return true
}
