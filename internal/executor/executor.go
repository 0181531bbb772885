// Package executor submits a cycle's actions to the exchange and records
// what happened to each of them.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// Notifier receives order failure alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Options holds the Executor's optional collaborators.
type Options struct {
	Store    domain.ActionStore // nil disables persistence
	Notifier Notifier           // nil disables alerts
	DedupTTL time.Duration
}

// Executor submits actions in order through an ExchangeExecutor. Every
// action is attempted even when an earlier one fails; the failures are
// returned joined.
type Executor struct {
	exchange domain.ExchangeExecutor
	store    domain.ActionStore
	notifier Notifier
	dedup    *Dedup
	logger   *slog.Logger
}

// New creates an Executor.
func New(exchange domain.ExchangeExecutor, opts Options, logger *slog.Logger) *Executor {
	return &Executor{
		exchange: exchange,
		store:    opts.Store,
		notifier: opts.Notifier,
		dedup:    NewDedup(opts.DedupTTL),
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute submits actions one by one.
func (e *Executor) Execute(ctx context.Context, cycleID string, actions []domain.Action) error {
	e.dedup.Cleanup()

	var errs []error
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.execute(ctx, cycleID, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) execute(ctx context.Context, cycleID string, a domain.Action) error {
	rec := domain.RecordOf(cycleID, a)
	rec.ID = uuid.NewString()
	log := e.logger.With(
		slog.String("cycle_id", cycleID),
		slog.String("action_id", rec.ID),
		slog.String("kind", string(rec.Kind)),
	)

	key := ActionKey(a)
	if e.dedup.Seen(key) {
		log.Info("action submitted recently, skipping", slog.String("key", key))
		rec.Status = domain.ActionStatusSkipped
		e.record(ctx, log, rec)
		return nil
	}

	res, err := e.submit(ctx, a)
	switch {
	case err != nil:
		rec.Status = domain.ActionStatusFailed
		rec.Error = err.Error()
	case !res.Success:
		rec.Status = domain.ActionStatusFailed
		rec.Error = res.Error
		err = fmt.Errorf("%w: %s", domain.ErrInvalidOrder, res.Error)
	default:
		rec.Status = domain.ActionStatusSubmitted
		rec.TxHash = res.TxHash
		e.dedup.Mark(key)
	}
	e.record(ctx, log, rec)

	if err != nil {
		log.Error("action failed", slog.String("error", err.Error()))
		e.alert(ctx, log, a, err)
		return fmt.Errorf("executor: %s: %w", rec.Kind, err)
	}
	log.Info("action submitted", slog.String("tx", rec.TxHash))
	return nil
}

func (e *Executor) submit(ctx context.Context, a domain.Action) (domain.ExecResult, error) {
	switch v := a.(type) {
	case domain.NewOrder:
		return e.exchange.PlaceOrder(ctx, v)
	case domain.CancelOrder:
		return e.exchange.CancelOrder(ctx, v)
	case domain.Trade:
		return e.exchange.Trade(ctx, v)
	default:
		return domain.ExecResult{}, fmt.Errorf("unknown action %T", a)
	}
}

func (e *Executor) record(ctx context.Context, log *slog.Logger, rec domain.ActionRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.Insert(ctx, rec); err != nil {
		log.Warn("persist action failed", slog.String("error", err.Error()))
	}
}

func (e *Executor) alert(ctx context.Context, log *slog.Logger, a domain.Action, err error) {
	if e.notifier == nil {
		return
	}
	msg := fmt.Sprintf("%s failed: %v", Describe(a), err)
	if nerr := e.notifier.Notify(ctx, "order_failed", "Order failed", msg); nerr != nil {
		log.Warn("notify failed", slog.String("error", nerr.Error()))
	}
}

// ActionKey identifies an action for deduplication.
func ActionKey(a domain.Action) string {
	switch v := a.(type) {
	case domain.NewOrder:
		return fmt.Sprintf("new:%s:%s:%s", v.Side, v.Price, v.Amount)
	case domain.CancelOrder:
		return fmt.Sprintf("cancel:%s:%s", v.Contract, v.OrderID)
	case domain.Trade:
		return fmt.Sprintf("trade:%s:%s:%s", v.Contract, v.OrderID, v.Amount)
	default:
		return fmt.Sprintf("%T", a)
	}
}

// Describe renders an action for logs and alerts.
func Describe(a domain.Action) string {
	switch v := a.(type) {
	case domain.NewOrder:
		return fmt.Sprintf("new %s order %s @ %s", v.Side, v.Amount, v.Price)
	case domain.CancelOrder:
		return fmt.Sprintf("cancel order %s on %s", v.OrderID, v.Contract)
	case domain.Trade:
		return fmt.Sprintf("trade %s against order %s on %s", v.Amount, v.OrderID, v.Contract)
	default:
		return fmt.Sprintf("%T", a)
	}
}
