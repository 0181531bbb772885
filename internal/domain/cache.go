package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// ChartEntry is the latest depth chart for a pair together with the
// snapshot figures it was drawn from.
type ChartEntry struct {
	Token            string
	Chart            string
	BestBuyPrice     decimal.Decimal
	BestSellPrice    decimal.Decimal
	Spread           decimal.Decimal
	WeightedMidPrice decimal.Decimal
	BuyDepth         decimal.Decimal
	SellDepth        decimal.Decimal
	RenderedAt       time.Time
}

// ChartCache keeps the most recent chart per pair for the status server.
type ChartCache interface {
	SetChart(ctx context.Context, entry ChartEntry) error
	GetChart(ctx context.Context, token string) (ChartEntry, error)
}

// SignalBus provides pub/sub between the runner and the status server.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter counts requests per key in a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
