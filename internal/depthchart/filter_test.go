package depthchart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

func order(balance, price string) domain.Order {
	return domain.Order{
		Balance: decimal.RequireFromString(balance),
		Price:   decimal.RequireFromString(price),
	}
}

func TestFilterOutliers_TruncatesCrossingOrder(t *testing.T) {
	buys := []domain.Order{order("1", "10")}
	sells := []domain.Order{order("1", "1"), order("1", "1"), order("100", "1")}

	kept, truncated := FilterOutliers(sells, domain.Depth(buys))
	if !truncated {
		t.Fatal("expected truncated=true")
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept orders, got %d", len(kept))
	}
	// cap 15, first two contribute 2
	if !kept[2].Balance.Equal(decimal.RequireFromString("13")) {
		t.Fatalf("expected third balance 13, got %s", kept[2].Balance)
	}
	if !domain.Depth(kept).Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected plotted depth 15, got %s", domain.Depth(kept))
	}
	if !sells[2].Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("input mutated: %s", sells[2].Balance)
	}
}

func TestFilterOutliers_DropsEverythingAfterCap(t *testing.T) {
	sells := []domain.Order{
		order("1", "1"), order("1", "1"), order("5", "2"), order("1", "3"), order("1", "4"),
	}
	kept, truncated := FilterOutliers(sells, decimal.NewFromInt(4))
	if !truncated {
		t.Fatal("expected truncated=true")
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept orders, got %d", len(kept))
	}
	// cap 6, 2 used, 4 left at price 2
	if !kept[2].Balance.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected balance 2, got %s", kept[2].Balance)
	}
}

func TestFilterOutliers_KeepsFirstTwoEvenAboveCap(t *testing.T) {
	sells := []domain.Order{order("50", "1"), order("50", "1"), order("1", "1")}
	kept, truncated := FilterOutliers(sells, decimal.NewFromInt(1))
	if len(kept) != 2 {
		t.Fatalf("expected first two kept, got %d", len(kept))
	}
	if !truncated {
		t.Fatal("expected truncated=true when the tail is dropped")
	}
}

func TestFilterOutliers_NoTruncationWithinCap(t *testing.T) {
	sells := []domain.Order{order("1", "1"), order("1", "2"), order("1", "3")}
	kept, truncated := FilterOutliers(sells, decimal.NewFromInt(10))
	if truncated {
		t.Fatal("did not expect truncation")
	}
	if len(kept) != 3 {
		t.Fatalf("expected all orders kept, got %d", len(kept))
	}
}
