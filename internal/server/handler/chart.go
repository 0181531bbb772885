package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// ChartHandler serves the latest depth chart of the traded pair.
type ChartHandler struct {
	charts domain.ChartCache
	token  string
	logger *slog.Logger
}

// NewChartHandler creates a ChartHandler for token.
func NewChartHandler(charts domain.ChartCache, token string, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{charts: charts, token: token, logger: logger}
}

type chartResponse struct {
	Token            string `json:"token"`
	Chart            string `json:"chart"`
	BestBuyPrice     string `json:"best_buy_price"`
	BestSellPrice    string `json:"best_sell_price"`
	Spread           string `json:"spread"`
	WeightedMidPrice string `json:"weighted_mid_price"`
	BuyDepth         string `json:"buy_depth"`
	SellDepth        string `json:"sell_depth"`
	RenderedAt       string `json:"rendered_at"`
}

// GetChart returns the cached chart as JSON, or as plain text with
// ?format=text.
// GET /api/chart
func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	entry, err := h.charts.GetChart(r.Context(), h.token)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no chart rendered yet")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get chart failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load chart")
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(entry.Chart + "\n"))
		return
	}

	writeJSON(w, http.StatusOK, chartResponse{
		Token:            entry.Token,
		Chart:            entry.Chart,
		BestBuyPrice:     entry.BestBuyPrice.String(),
		BestSellPrice:    entry.BestSellPrice.String(),
		Spread:           entry.Spread.String(),
		WeightedMidPrice: entry.WeightedMidPrice.String(),
		BuyDepth:         entry.BuyDepth.String(),
		SellDepth:        entry.SellDepth.String(),
		RenderedAt:       entry.RenderedAt.UTC().Format(time.RFC3339),
	})
}
