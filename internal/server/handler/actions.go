package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// ActionHandler serves the executed action history.
type ActionHandler struct {
	store  domain.ActionStore
	logger *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(store domain.ActionStore, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{store: store, logger: logger}
}

type actionJSON struct {
	ID        string `json:"id"`
	CycleID   string `json:"cycle_id"`
	Kind      string `json:"kind"`
	Side      string `json:"side,omitempty"`
	Contract  string `json:"contract,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Amount    string `json:"amount"`
	Price     string `json:"price"`
	Status    string `json:"status"`
	TxHash    string `json:"tx_hash,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toActionJSON(recs []domain.ActionRecord) []actionJSON {
	out := make([]actionJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, actionJSON{
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
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ListRecent returns actions newest first.
// GET /api/actions?limit=50&offset=0&since=...&until=...
func (h *ActionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListRecent(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list actions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": toActionJSON(recs)})
}

// ListByCycle returns the actions of one cycle.
// GET /api/cycles/{id}/actions
func (h *ActionHandler) ListByCycle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing cycle id")
		return
	}
	recs, err := h.store.ListByCycle(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list cycle actions failed",
			slog.String("cycle_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycle_id": id, "actions": toActionJSON(recs)})
}
