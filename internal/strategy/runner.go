package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// CycleChannel is the signal bus channel cycle summaries are published on.
const CycleChannel = "mm:cycle"

// Executor carries out the actions of one cycle.
type Executor interface {
	Execute(ctx context.Context, cycleID string, actions []domain.Action) error
}

// RunnerDeps groups the Runner's collaborators. Source, Balances, Decider
// and Executor are required; the rest may be nil.
type RunnerDeps struct {
	Source   domain.OrderBookSource
	Balances domain.BalanceSource
	Decider  *Decider
	Executor Executor

	Locks    domain.LockManager
	Charts   domain.ChartCache
	Archive  domain.ChartArchiver
	Bus      domain.SignalBus
	Audit    domain.AuditStore
	Notifier Notifier
}

// CycleResult describes one completed (or skipped) cycle.
type CycleResult struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	Skipped   bool
	Decision  Decision
	Err       error
}

// Runner schedules decision cycles for one bot identity. Cycles never
// overlap: they run on the Runner's goroutine and, when a LockManager is
// configured, also hold a distributed lock keyed on address and token.
type Runner struct {
	cfg  RunnerConfig
	deps RunnerDeps

	logger *slog.Logger

	mu      sync.Mutex
	recent  []CycleResult
	lastRun time.Time
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, deps RunnerDeps, logger *slog.Logger) *Runner {
	if cfg.History <= 0 {
		cfg.History = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * cfg.Interval
	}
	return &Runner{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "runner")),
	}
}

// LockKey is the distributed lock guarding this bot's cycles.
func (r *Runner) LockKey() string {
	return fmt.Sprintf("lock:cycle:%s:%s", r.cfg.Address, r.cfg.Token)
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. A failed cycle is logged and the next one still runs.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started",
		slog.String("address", r.cfg.Address),
		slog.String("token", r.cfg.Token),
		slog.Duration("interval", r.cfg.Interval),
	)
	defer r.logger.Info("runner stopped")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("cycle failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single cycle: lock, fetch, decide, execute, publish.
func (r *Runner) RunOnce(ctx context.Context) (CycleResult, error) {
	res := CycleResult{CycleID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := r.logger.With(slog.String("cycle_id", res.CycleID))

	if r.deps.Locks != nil {
		unlock, err := r.deps.Locks.Acquire(ctx, r.LockKey(), r.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			logger.Warn("previous cycle still running, skipping")
			res.Skipped = true
			r.finish(ctx, &res)
			return res, nil
		}
		if err != nil {
			res.Err = fmt.Errorf("strategy: acquire cycle lock: %w", err)
			r.finish(ctx, &res)
			return res, res.Err
		}
		defer unlock()
	}

	in, err := r.gather(ctx)
	if err != nil {
		res.Err = err
		r.fail(ctx, logger, err)
		r.finish(ctx, &res)
		return res, err
	}

	dec, err := r.deps.Decider.Decide(in)
	if err != nil {
		res.Err = err
		r.fail(ctx, logger, err)
		r.finish(ctx, &res)
		return res, err
	}
	res.Decision = dec
	r.publishChart(ctx, logger, dec)

	if len(dec.Actions) > 0 {
		logger.Info("executing actions", slog.Int("count", len(dec.Actions)), slog.String("kind", string(dec.Actions[0].Kind())))
		if err := r.deps.Executor.Execute(ctx, res.CycleID, dec.Actions); err != nil {
			res.Err = fmt.Errorf("strategy: execute: %w", err)
			r.fail(ctx, logger, res.Err)
			r.finish(ctx, &res)
			return res, res.Err
		}
	} else {
		logger.Debug("nothing to do")
	}

	r.finish(ctx, &res)
	return res, nil
}

// gather fetches the book, own orders and balances one after the other.
// Any failure fails the cycle.
func (r *Runner) gather(ctx context.Context) (Inputs, error) {
	var in Inputs
	var err error

	if in.Book, err = r.deps.Source.OrderBook(ctx); err != nil {
		return in, fmt.Errorf("strategy: fetch order book: %w", err)
	}
	if in.Own, err = r.deps.Source.OrdersFor(ctx, r.cfg.Address); err != nil {
		return in, fmt.Errorf("strategy: fetch own orders: %w", err)
	}
	if in.Balances.Ether, err = r.deps.Balances.QuoteBalance(ctx, r.cfg.Address); err != nil {
		return in, fmt.Errorf("strategy: fetch quote balance: %w", err)
	}
	if in.Balances.Tokens, err = r.deps.Balances.BaseTokenBalance(ctx, r.cfg.Address); err != nil {
		return in, fmt.Errorf("strategy: fetch token balance: %w", err)
	}
	if in.TokenDecimals, err = r.deps.Balances.TokenDecimals(ctx, r.cfg.Token); err != nil {
		return in, fmt.Errorf("strategy: fetch token decimals: %w", err)
	}
	return in, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, err error) {
	event, title := "cycle_error", "Cycle failed"
	var thin *domain.ThinBookError
	if errors.As(err, &thin) {
		event, title = "thin_book", "Order book too thin"
		logger.Error("order book too thin", slog.String("side", string(thin.Side)), slog.Int("orders", thin.Have))
	}

	if r.deps.Audit != nil {
		if aerr := r.deps.Audit.Log(ctx, event, map[string]any{"error": err.Error()}); aerr != nil {
			logger.Warn("audit log failed", slog.String("error", aerr.Error()))
		}
	}
	if r.deps.Notifier != nil {
		if nerr := r.deps.Notifier.Notify(ctx, event, title, err.Error()); nerr != nil {
			logger.Warn("notify failed", slog.String("error", nerr.Error()))
		}
	}
}

// publishChart caches and archives the cycle's chart. Failures here are
// logged; they never fail the cycle.
func (r *Runner) publishChart(ctx context.Context, logger *slog.Logger, dec Decision) {
	now := time.Now().UTC()
	if r.deps.Charts != nil {
		s := dec.Snapshot
		entry := domain.ChartEntry{
			Token:            r.cfg.Token,
			Chart:            dec.Chart,
			BestBuyPrice:     s.BestBuyPrice,
			BestSellPrice:    s.BestSellPrice,
			Spread:           s.Spread,
			WeightedMidPrice: s.WeightedMidPrice,
			BuyDepth:         s.BuyDepth,
			SellDepth:        s.SellDepth,
			RenderedAt:       now,
		}
		if err := r.deps.Charts.SetChart(ctx, entry); err != nil {
			logger.Warn("cache chart failed", slog.String("error", err.Error()))
		}
	}
	if r.deps.Archive != nil {
		if _, err := r.deps.Archive.ArchiveChart(ctx, r.cfg.Token, now, dec.Chart); err != nil {
			logger.Warn("archive chart failed", slog.String("error", err.Error()))
		}
	}
}

// finish records the result and publishes a summary on the bus.
func (r *Runner) finish(ctx context.Context, res *CycleResult) {
	res.Duration = time.Since(res.StartedAt)
	r.remember(*res)

	if r.deps.Bus == nil {
		return
	}
	summary := domain.CycleSummary{
		CycleID:    res.CycleID,
		Token:      r.cfg.Token,
		Chart:      res.Decision.Chart,
		Actions:    make([]string, 0, len(res.Decision.Actions)),
		Skipped:    res.Skipped,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, a := range res.Decision.Actions {
		summary.Actions = append(summary.Actions, string(a.Kind()))
	}
	if res.Err != nil {
		summary.Error = res.Err.Error()
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		r.logger.Warn("marshal cycle summary failed", slog.String("error", err.Error()))
		return
	}
	if err := r.deps.Bus.Publish(ctx, CycleChannel, payload); err != nil {
		r.logger.Warn("publish cycle summary failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) remember(res CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = res.StartedAt
	r.recent = append(r.recent, res)
	if overflow := len(r.recent) - r.cfg.History; overflow > 0 {
		r.recent = append([]CycleResult(nil), r.recent[overflow:]...)
	}
}

// RecentCycles returns up to limit most recent cycles, newest first.
func (r *Runner) RecentCycles(limit int) []CycleResult {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.recent)
	if limit > n {
		limit = n
	}
	out := make([]CycleResult, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.recent[i])
	}
	return out
}

// LastRun returns when the most recent cycle started.
func (r *Runner) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}
