package s3blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

type memWriter struct {
	objects     map[string]string
	types       map[string]string
	usedPartial bool
	err         error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string]string{}, types: map[string]string{}}
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = string(b)
	w.types[path] = contentType
	return nil
}

type memMultipart struct{ *memWriter }

func (w memMultipart) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string) error {
	w.usedPartial = true
	return w.Put(ctx, path, data, contentType)
}

type memActions struct {
	recs []domain.ActionRecord
	opts domain.ListOpts
}

func (m *memActions) Insert(context.Context, domain.ActionRecord) error { return nil }
func (m *memActions) ListByCycle(context.Context, string) ([]domain.ActionRecord, error) {
	return nil, nil
}
func (m *memActions) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	m.opts = opts
	return m.recs, nil
}

type memAudit struct{ events []string }

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}
func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestArchiveChart(t *testing.T) {
	w := newMemWriter()
	a := NewArchiver(w, nil, nil)
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := a.ArchiveChart(context.Background(), "0xABC", at, "chart body")
	if err != nil {
		t.Fatalf("ArchiveChart: %v", err)
	}
	want := "charts/0xabc/2026/03/04/1772600767.txt"
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if w.objects[want] != "chart body" {
		t.Errorf("stored %q", w.objects[want])
	}
	if !strings.HasPrefix(w.types[want], "text/plain") {
		t.Errorf("content type = %q", w.types[want])
	}
}

func TestArchiveChartError(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("boom")
	_, err := NewArchiver(w, nil, nil).ArchiveChart(context.Background(), "0xabc", time.Now(), "x")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v", err)
	}
}

func TestArchiveActions(t *testing.T) {
	w := memMultipart{newMemWriter()}
	actions := &memActions{recs: []domain.ActionRecord{
		{ID: "a1", CycleID: "c1", Kind: domain.ActionNewOrder, Side: domain.SideBuy,
			Amount: decimal.RequireFromString("7.39"), Price: decimal.RequireFromString("1.216667"),
			Status: domain.ActionStatusSubmitted},
		{ID: "a2", CycleID: "c1", Kind: domain.ActionCancel, Contract: "0xc", OrderID: "9",
			Status: domain.ActionStatusFailed, Error: "nonce"},
	}}
	audit := &memAudit{}
	a := NewArchiver(w, actions, audit)

	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveActions(context.Background(), from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ArchiveActions: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d", n)
	}
	body := w.objects["archive/actions/2026-03-04.jsonl"]
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", body)
	}
	if !strings.Contains(lines[0], `"price":"1.216667"`) {
		t.Errorf("line 0 = %s", lines[0])
	}
	if !w.usedPartial {
		t.Error("multipart upload not used")
	}
	if !actions.opts.Since.Equal(from) || !actions.opts.Until.Before(from.Add(24*time.Hour)) {
		t.Errorf("window = %v..%v", actions.opts.Since, actions.opts.Until)
	}
	if len(audit.events) != 1 || audit.events[0] != "archive.actions" {
		t.Errorf("audit = %v", audit.events)
	}
}

func TestArchiveActionsEmpty(t *testing.T) {
	w := newMemWriter()
	n, err := NewArchiver(w, &memActions{}, nil).ArchiveActions(context.Background(), time.Now(), time.Now())
	if err != nil || n != 0 || len(w.objects) != 0 {
		t.Fatalf("n=%d err=%v objects=%v", n, err, w.objects)
	}
}

func TestWithScheme(t *testing.T) {
	if got := withScheme("localhost:9000"); got != "https://localhost:9000" {
		t.Errorf("got %q", got)
	}
	if got := withScheme("http://minio:9000"); got != "http://minio:9000" {
		t.Errorf("got %q", got)
	}
}
