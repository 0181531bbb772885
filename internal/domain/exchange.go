package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderBookSource returns the exchange order book for the configured pair.
type OrderBookSource interface {
	OrderBook(ctx context.Context) (OrderBook, error)
	OrdersFor(ctx context.Context, address string) (OrderBook, error)
}

// BalanceSource reports wallet balances on chain.
type BalanceSource interface {
	BaseTokenBalance(ctx context.Context, address string) (decimal.Decimal, error)
	QuoteBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenDecimals(ctx context.Context, token string) (int32, error)
}

// ExecResult is the exchange's answer to a submitted action.
type ExecResult struct {
	Success bool
	TxHash  string
	Error   string
}

// ExchangeExecutor submits signed actions to the exchange.
type ExchangeExecutor interface {
	PlaceOrder(ctx context.Context, o NewOrder) (ExecResult, error)
	CancelOrder(ctx context.Context, c CancelOrder) (ExecResult, error)
	Trade(ctx context.Context, t Trade) (ExecResult, error)
}
