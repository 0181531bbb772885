package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/strategy"
)

// CycleHistory is the in-process record of recent cycles.
type CycleHistory interface {
	RecentCycles(limit int) []strategy.CycleResult
}

// CycleHandler serves recent cycles of a bot running in this process.
type CycleHandler struct {
	history CycleHistory
}

// NewCycleHandler creates a CycleHandler.
func NewCycleHandler(history CycleHistory) *CycleHandler {
	return &CycleHandler{history: history}
}

type cycleJSON struct {
	CycleID    string   `json:"cycle_id"`
	StartedAt  string   `json:"started_at"`
	DurationMS int64    `json:"duration_ms"`
	Skipped    bool     `json:"skipped,omitempty"`
	Actions    []string `json:"actions"`
	Error      string   `json:"error,omitempty"`
}

// ListRecent returns up to ?limit= (default 20) cycles, newest first.
// GET /api/cycles
func (h *CycleHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, 200)
	}

	cycles := h.history.RecentCycles(limit)
	out := make([]cycleJSON, 0, len(cycles))
	for _, c := range cycles {
		cj := cycleJSON{
			CycleID:    c.CycleID,
			StartedAt:  c.StartedAt.UTC().Format(time.RFC3339),
			DurationMS: c.Duration.Milliseconds(),
			Skipped:    c.Skipped,
			Actions:    make([]string, 0, len(c.Decision.Actions)),
		}
		for _, a := range c.Decision.Actions {
			cj.Actions = append(cj.Actions, string(a.Kind()))
		}
		if c.Err != nil {
			cj.Error = c.Err.Error()
		}
		out = append(out, cj)
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": out})
}
