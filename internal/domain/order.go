package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Side indicates which half of the book an order rests on.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order is one resting liquidity entry. The side is implied by the slice of
// the OrderBook it appears in.
type Order struct {
	Price    decimal.Decimal // quote currency per unit of base token, > 0
	Balance  decimal.Decimal // remaining base token amount, >= 0
	Contract string          // exchange contract holding the order
	OrderID  string          // id of the order within Contract
}

// Notional returns balance * price in quote currency.
func (o Order) Notional() decimal.Decimal {
	return o.Balance.Mul(o.Price)
}

// Key identifies the order across cycles.
func (o Order) Key() string {
	return o.Contract + ":" + o.OrderID
}

// OrderBook holds both sides of the book for the configured pair. No
// ordering is guaranteed within Buys or Sells.
type OrderBook struct {
	Buys  []Order
	Sells []Order
}

// SortedAscending returns a copy of orders sorted by ascending price. The
// sort is stable so equal prices keep their source order.
func SortedAscending(orders []Order) []Order {
	out := make([]Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// Depth returns the notional summed over orders.
func Depth(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Notional())
	}
	return total
}

// TotalBalance returns the base token amount summed over orders.
func TotalBalance(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Balance)
	}
	return total
}

// Balances is the wallet state the decision engine works from.
type Balances struct {
	Ether  decimal.Decimal // quote currency held by the bot
	Tokens decimal.Decimal // base token held by the bot
}
