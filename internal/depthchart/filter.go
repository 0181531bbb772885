package depthchart

import (
	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// keepAlways is the number of leading orders kept regardless of depth so
// the chart is never narrower than two steps.
const keepAlways = 2

var capFactor = decimal.RequireFromString("1.5")

// FilterOutliers bounds the cumulative notional of sells to 1.5x buyDepth.
// The first two orders are always kept and count towards the running
// total. The first order that would push the total past the cap is kept
// with its balance cut so the total lands exactly on the cap, and every
// later order is dropped. truncated reports whether anything was cut.
//
// The input slice is not modified.
func FilterOutliers(sells []domain.Order, buyDepth decimal.Decimal) (kept []domain.Order, truncated bool) {
	limit := buyDepth.Mul(capFactor)
	kept = make([]domain.Order, 0, len(sells))
	cumulative := decimal.Zero

	for i, o := range sells {
		notional := o.Notional()
		if i < keepAlways || cumulative.Add(notional).LessThanOrEqual(limit) {
			kept = append(kept, o)
			cumulative = cumulative.Add(notional)
			continue
		}

		truncated = true
		remaining := limit.Sub(cumulative)
		if remaining.Sign() > 0 && o.Price.Sign() > 0 {
			o.Balance = remaining.Div(o.Price)
			kept = append(kept, o)
		}
		break
	}
	return kept, truncated
}
