package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
	"github.com/saturn-network/market-maker-strategy/internal/server/handler"
	"github.com/saturn-network/market-maker-strategy/internal/strategy"
)

const token = "0xabc"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memCharts struct{ entry *domain.ChartEntry }

func (m *memCharts) SetChart(_ context.Context, e domain.ChartEntry) error {
	m.entry = &e
	return nil
}

func (m *memCharts) GetChart(_ context.Context, tok string) (domain.ChartEntry, error) {
	if m.entry == nil || m.entry.Token != tok {
		return domain.ChartEntry{}, domain.ErrNotFound
	}
	return *m.entry, nil
}

type memActions struct {
	recs     []domain.ActionRecord
	lastOpts domain.ListOpts
}

func (m *memActions) Insert(context.Context, domain.ActionRecord) error { return nil }

func (m *memActions) ListByCycle(_ context.Context, id string) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	for _, r := range m.recs {
		if r.CycleID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memActions) ListRecent(_ context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	m.lastOpts = opts
	return m.recs, nil
}

type memAudit struct{}

func (memAudit) Log(context.Context, string, map[string]any) error { return nil }
func (memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return []domain.AuditEntry{{ID: 1, Event: "thin_book", Detail: map[string]any{"error": "x"}}}, nil
}

type fixedHistory []strategy.CycleResult

func (h fixedHistory) RecentCycles(limit int) []strategy.CycleResult {
	return h[:min(limit, len(h))]
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

func newTestHandler(t *testing.T, cfg Config, limiter domain.RateLimiter) (http.Handler, *memCharts, *memActions) {
	t.Helper()
	charts := &memCharts{}
	actions := &memActions{recs: []domain.ActionRecord{{
		ID: "a1", CycleID: "c1", Kind: domain.ActionNewOrder, Side: domain.SideBuy,
		Amount: decimal.RequireFromString("7.39"), Price: decimal.RequireFromString("1.216667"),
		Status: domain.ActionStatusSubmitted,
	}}}
	logger := discardLogger()
	h := Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"redis": func(context.Context) error { return nil },
		}, logger),
		Status: handler.NewStatusHandler(func() domain.BotStatus {
			return domain.BotStatus{Mode: "trade", Address: "0x1", Token: token}
		}),
		Chart:   handler.NewChartHandler(charts, token, logger),
		Actions: handler.NewActionHandler(actions, logger),
		Audit:   handler.NewAuditHandler(memAudit{}, logger),
		Cycles: handler.NewCycleHandler(fixedHistory{
			{CycleID: "c2", Err: errors.New("order book too thin")},
			{CycleID: "c1", Decision: strategy.Decision{Actions: []domain.Action{domain.CancelOrder{}}}},
		}),
	}
	return NewHandler(cfg, h, nil, limiter, logger), charts, actions
}

func do(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{APIKey: "secret"}, nil)
	rec := do(h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestAuthRequired(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{APIKey: "secret"}, nil)

	if rec := do(h, http.MethodGet, "/api/status", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/status", map[string]string{"X-API-Key": "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/status", map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"mode":"trade"`) {
		t.Errorf("bearer: %d %s", rec.Code, rec.Body)
	}
	if rec := do(h, http.MethodGet, "/api/status?api_key=secret", nil); rec.Code != http.StatusOK {
		t.Errorf("query key: status = %d", rec.Code)
	}
}

func TestChartEndpoint(t *testing.T) {
	h, charts, _ := newTestHandler(t, Config{}, nil)

	if rec := do(h, http.MethodGet, "/api/chart", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("empty cache: status = %d", rec.Code)
	}

	_ = charts.SetChart(context.Background(), domain.ChartEntry{
		Token:            token,
		Chart:            "1.00 ┤╮\n0.00 ┼╰",
		WeightedMidPrice: decimal.RequireFromString("1.316667"),
		RenderedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	rec := do(h, http.MethodGet, "/api/chart", nil)
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["weighted_mid_price"] != "1.316667" || body["rendered_at"] != "2026-01-01T00:00:00Z" {
		t.Errorf("body = %v", body)
	}

	rec = do(h, http.MethodGet, "/api/chart?format=text", nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.String() != "1.00 ┤╮\n0.00 ┼╰\n" {
		t.Errorf("text = %q", rec.Body)
	}
}

func TestActionsEndpoints(t *testing.T) {
	h, _, actions := newTestHandler(t, Config{}, nil)

	rec := do(h, http.MethodGet, "/api/actions?limit=900&offset=5&since=2026-01-01T00:00:00Z", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"price":"1.216667"`) {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
	if actions.lastOpts.Limit != 500 || actions.lastOpts.Offset != 5 || actions.lastOpts.Since == nil {
		t.Errorf("opts = %+v", actions.lastOpts)
	}

	rec = do(h, http.MethodGet, "/api/cycles/c1/actions", nil)
	if !strings.Contains(rec.Body.String(), `"cycle_id":"c1"`) || !strings.Contains(rec.Body.String(), `"id":"a1"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestCyclesAndAudit(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{}, nil)

	rec := do(h, http.MethodGet, "/api/cycles?limit=1", nil)
	var body struct {
		Cycles []struct {
			CycleID string `json:"cycle_id"`
			Error   string `json:"error"`
		} `json:"cycles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Cycles) != 1 || body.Cycles[0].CycleID != "c2" || body.Cycles[0].Error == "" {
		t.Errorf("cycles = %+v", body.Cycles)
	}

	rec = do(h, http.MethodGet, "/api/audit", nil)
	if !strings.Contains(rec.Body.String(), `"event":"thin_book"`) {
		t.Errorf("audit = %s", rec.Body)
	}
}

func TestRateLimit(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{RateLimit: 10}, denyAll{})
	rec := do(h, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("status = %d retry = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestHandler(t, Config{APIKey: "secret", CORSOrigins: []string{"https://dash.example"}}, nil)

	rec := do(h, http.MethodOptions, "/api/chart", map[string]string{"Origin": "https://dash.example"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	rec = do(h, http.MethodOptions, "/api/chart", map[string]string{"Origin": "https://evil.example"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin allowed")
	}
}
