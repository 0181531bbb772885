// Package market derives the per-cycle view of the order book that the
// decision engine and the depth chart work from.
package market

import (
	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// Snapshot is a derived view of one OrderBook. It is recomputed every
// cycle and never reused across cycles.
type Snapshot struct {
	Book domain.OrderBook

	// Both sides sorted ascending by price.
	SortedBuys  []domain.Order
	SortedSells []domain.Order

	BestBuy  domain.Order // highest-priced buy
	BestSell domain.Order // lowest-priced sell

	BestBuyPrice     decimal.Decimal
	BestSellPrice    decimal.Decimal
	Spread           decimal.Decimal
	BuyDepth         decimal.Decimal
	SellDepth        decimal.Decimal
	WeightedMidPrice decimal.Decimal
}

// NewSnapshot computes every derived quantity of book. It fails with a
// *domain.ThinBookError when a side is empty and with a
// *domain.QuoteComputationError when the weighted mid is undefined.
func NewSnapshot(book domain.OrderBook) (Snapshot, error) {
	if len(book.Buys) == 0 {
		return Snapshot{}, &domain.ThinBookError{Side: domain.SideBuy, Have: 0, Need: 1}
	}
	if len(book.Sells) == 0 {
		return Snapshot{}, &domain.ThinBookError{Side: domain.SideSell, Have: 0, Need: 1}
	}

	s := Snapshot{
		Book:        book,
		SortedBuys:  domain.SortedAscending(book.Buys),
		SortedSells: domain.SortedAscending(book.Sells),
	}
	s.BestBuy = s.SortedBuys[len(s.SortedBuys)-1]
	s.BestSell = s.SortedSells[0]
	s.BestBuyPrice = s.BestBuy.Price
	s.BestSellPrice = s.BestSell.Price
	s.Spread = s.BestSellPrice.Sub(s.BestBuyPrice)
	s.BuyDepth = domain.Depth(book.Buys)
	s.SellDepth = domain.Depth(book.Sells)

	mid, err := WeightedMid(s.BestBuyPrice, s.BestSellPrice, s.BuyDepth, s.SellDepth)
	if err != nil {
		return Snapshot{}, err
	}
	s.WeightedMidPrice = mid
	return s, nil
}

// WeightedMid returns the depth-weighted mid price. The price on each side
// is weighted by the depth of the opposite side, so a deep buy side pulls
// the mid towards the best sell.
func WeightedMid(bestBuy, bestSell, buyDepth, sellDepth decimal.Decimal) (decimal.Decimal, error) {
	total := buyDepth.Add(sellDepth)
	if total.Sign() <= 0 {
		return decimal.Zero, &domain.QuoteComputationError{
			Quantity: "weighted mid price",
			Reason:   "total book depth is zero",
		}
	}
	num := bestSell.Mul(buyDepth).Add(bestBuy.Mul(sellDepth))
	return num.Div(total), nil
}

// Crossed reports whether the best buy meets or exceeds the best sell.
func (s Snapshot) Crossed() bool {
	return s.Spread.Sign() <= 0
}
