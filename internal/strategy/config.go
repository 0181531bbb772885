package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places quotes are rounded to.
const PricePrecision = 6

// Config holds the immutable parameters of one market-making run.
type Config struct {
	FundMinimum decimal.Decimal // ether kept in reserve, never quoted
	TokenLimit  decimal.Decimal // max base token exposure; zero means unlimited
	Spread      decimal.Decimal // minimum market spread worth quoting into
	DustCutoff  decimal.Decimal // notional at or below which an order is dust
	BandSize    decimal.Decimal // multiple of Spread own orders must stay within
}

// RunnerConfig controls how the Runner schedules cycles.
type RunnerConfig struct {
	Address  string // bot wallet address, the identity cycles are locked on
	Token    string // base token contract of the traded pair
	Interval time.Duration
	LockTTL  time.Duration
	// History is how many cycle results are kept for status queries.
	History int
}
