package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ActionStore persists every action the executor was handed.
type ActionStore interface {
	Insert(ctx context.Context, rec ActionRecord) error
	ListByCycle(ctx context.Context, cycleID string) ([]ActionRecord, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]ActionRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
