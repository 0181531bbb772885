package handler

import (
	"net/http"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// StatusHandler serves the bot's identity and liveness.
type StatusHandler struct {
	status func() domain.BotStatus
}

// NewStatusHandler creates a StatusHandler reading from status.
func NewStatusHandler(status func() domain.BotStatus) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with mode, address, token, uptime and last cycle time.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s := h.status()
	body := map[string]any{
		"mode":           s.Mode,
		"address":        s.Address,
		"token":          s.Token,
		"uptime_seconds": s.UptimeSeconds,
	}
	if !s.LastCycleAt.IsZero() {
		body["last_cycle_at"] = s.LastCycleAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}
