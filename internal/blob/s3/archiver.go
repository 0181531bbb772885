package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// multipartWriter is implemented by writers that can stream large objects.
type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver implements domain.ChartArchiver and exports executed actions.
type Archiver struct {
	writer  domain.BlobWriter
	actions domain.ActionStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver. actions and audit may be nil when only
// charts are archived.
func NewArchiver(writer domain.BlobWriter, actions domain.ActionStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, actions: actions, audit: audit}
}

// ArchiveChart uploads one rendered chart and returns its object key.
func (a *Archiver) ArchiveChart(ctx context.Context, token string, at time.Time, chart string) (string, error) {
	path := chartPath(token, at)
	if err := a.writer.Put(ctx, path, strings.NewReader(chart), "text/plain; charset=utf-8"); err != nil {
		return "", fmt.Errorf("s3blob: archive chart: %w", err)
	}
	return path, nil
}

// ArchiveActions exports every action recorded in [from, to) as JSONL and
// returns the number written. Nothing is uploaded for an empty window.
func (a *Archiver) ArchiveActions(ctx context.Context, from, to time.Time) (int, error) {
	if a.actions == nil {
		return 0, fmt.Errorf("s3blob: archive actions: no action store")
	}
	until := to.Add(-time.Nanosecond)
	recs, err := a.actions.ListRecent(ctx, domain.ListOpts{Since: &from, Until: &until})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive actions query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	rows := make([]actionRow, len(recs))
	for i, r := range recs {
		rows[i] = toRow(r)
	}
	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive actions marshal: %w", err)
	}

	path := actionsPath(from)
	const contentType = "application/x-ndjson"
	if mw, ok := a.writer.(multipartWriter); ok {
		err = mw.PutMultipart(ctx, path, bytes.NewReader(buf), contentType)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), contentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive actions upload: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.actions", map[string]any{
			"path":  path,
			"count": len(rows),
			"from":  from.Format(time.RFC3339),
			"to":    to.Format(time.RFC3339),
		}); err != nil {
			return len(rows), fmt.Errorf("s3blob: archive actions audit: %w", err)
		}
	}
	return len(rows), nil
}

type actionRow struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id"`
	Kind      string    `json:"kind"`
	Side      string    `json:"side,omitempty"`
	Contract  string    `json:"contract,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Amount    string    `json:"amount"`
	Price     string    `json:"price"`
	Status    string    `json:"status"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRow(r domain.ActionRecord) actionRow {
	return actionRow{
		ID:        r.ID,
		CycleID:   r.CycleID,
		Kind:      string(r.Kind),
		Side:      string(r.Side),
		Contract:  r.Contract,
		OrderID:   r.OrderID,
		Amount:    r.Amount.String(),
		Price:     r.Price.String(),
		Status:    string(r.Status),
		TxHash:    r.TxHash,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
}

//	charts/0xabc/2026/03/04/1772600767.txt
func chartPath(token string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("charts/%s/%s/%d.txt", strings.ToLower(token), at.Format("2006/01/02"), at.Unix())
}

//	archive/actions/2026-03-04.jsonl
func actionsPath(from time.Time) string {
	return fmt.Sprintf("archive/actions/%s.jsonl", from.UTC().Format("2006-01-02"))
}

// marshalJSONL writes one compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.ChartArchiver = (*Archiver)(nil)
