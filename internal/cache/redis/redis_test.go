package redis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

func TestChartFieldsRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	in := domain.ChartEntry{
		Token:            "0xabc",
		Chart:            "1.00 ┤╮\n0.00 ┼╰",
		BestBuyPrice:     decimal.RequireFromString("0.000123"),
		BestSellPrice:    decimal.RequireFromString("0.000130"),
		Spread:           decimal.RequireFromString("0.000007"),
		WeightedMidPrice: decimal.RequireFromString("0.0001265"),
		BuyDepth:         decimal.RequireFromString("12.5"),
		SellDepth:        decimal.RequireFromString("3"),
		RenderedAt:       at,
	}

	raw := chartFields(in)
	vals := make(map[string]string, len(raw))
	for k, v := range raw {
		vals[k] = v.(string)
	}

	out, err := parseChartFields("0xabc", vals)
	if err != nil {
		t.Fatalf("parseChartFields: %v", err)
	}
	if out.Chart != in.Chart || !out.RenderedAt.Equal(at) {
		t.Errorf("got %+v", out)
	}
	if !out.WeightedMidPrice.Equal(in.WeightedMidPrice) || !out.BuyDepth.Equal(in.BuyDepth) {
		t.Errorf("decimals lost precision: %s %s", out.WeightedMidPrice, out.BuyDepth)
	}
}

func TestParseChartFieldsRejectsGarbage(t *testing.T) {
	vals := map[string]string{"chart": "x", "best_buy": "abc"}
	if _, err := parseChartFields("0xabc", vals); err == nil {
		t.Fatal("expected error")
	}
}

func TestChartKey(t *testing.T) {
	if got := chartKey("0xabc"); got != "chart:0xabc" {
		t.Errorf("chartKey = %q", got)
	}
}
