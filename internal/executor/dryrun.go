package executor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// DryRun logs and records actions without touching the exchange. Monitor
// mode runs with it.
type DryRun struct {
	store  domain.ActionStore
	logger *slog.Logger
}

// NewDryRun creates a DryRun executor. store may be nil.
func NewDryRun(store domain.ActionStore, logger *slog.Logger) *DryRun {
	return &DryRun{store: store, logger: logger.With(slog.String("component", "dry_run"))}
}

// Execute logs each action and records it with status dry_run.
func (d *DryRun) Execute(ctx context.Context, cycleID string, actions []domain.Action) error {
	for _, a := range actions {
		d.logger.Info("would execute", slog.String("cycle_id", cycleID), slog.String("action", Describe(a)))
		if d.store == nil {
			continue
		}
		rec := domain.RecordOf(cycleID, a)
		rec.ID = uuid.NewString()
		rec.Status = domain.ActionStatusDryRun
		if err := d.store.Insert(ctx, rec); err != nil {
			d.logger.Warn("persist action failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
