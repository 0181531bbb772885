package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// ChartCache implements domain.ChartCache with one hash per token at
// "chart:{token}". Decimals are stored as strings.
type ChartCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewChartCache creates a ChartCache whose entries expire after ttl. A zero
// ttl keeps entries forever.
func NewChartCache(c *Client, ttl time.Duration) *ChartCache {
	return &ChartCache{rdb: c.Underlying(), ttl: ttl}
}

func chartKey(token string) string {
	return "chart:" + token
}

// SetChart replaces the cached chart for entry.Token.
func (cc *ChartCache) SetChart(ctx context.Context, entry domain.ChartEntry) error {
	key := chartKey(entry.Token)
	_, err := cc.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, chartFields(entry))
		if cc.ttl > 0 {
			pipe.Expire(ctx, key, cc.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set chart %s: %w", entry.Token, err)
	}
	return nil
}

// GetChart returns the cached chart for token or domain.ErrNotFound.
func (cc *ChartCache) GetChart(ctx context.Context, token string) (domain.ChartEntry, error) {
	vals, err := cc.rdb.HGetAll(ctx, chartKey(token)).Result()
	if err != nil {
		return domain.ChartEntry{}, fmt.Errorf("redis: get chart %s: %w", token, err)
	}
	if len(vals) == 0 {
		return domain.ChartEntry{}, domain.ErrNotFound
	}
	entry, err := parseChartFields(token, vals)
	if err != nil {
		return domain.ChartEntry{}, fmt.Errorf("redis: get chart %s: %w", token, err)
	}
	return entry, nil
}

func chartFields(e domain.ChartEntry) map[string]any {
	return map[string]any{
		"chart":      e.Chart,
		"best_buy":   e.BestBuyPrice.String(),
		"best_sell":  e.BestSellPrice.String(),
		"spread":     e.Spread.String(),
		"wmid":       e.WeightedMidPrice.String(),
		"buy_depth":  e.BuyDepth.String(),
		"sell_depth": e.SellDepth.String(),
		"ts":         strconv.FormatInt(e.RenderedAt.UnixNano(), 10),
	}
}

func parseChartFields(token string, vals map[string]string) (domain.ChartEntry, error) {
	e := domain.ChartEntry{Token: token, Chart: vals["chart"]}

	decimals := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"best_buy", &e.BestBuyPrice},
		{"best_sell", &e.BestSellPrice},
		{"spread", &e.Spread},
		{"wmid", &e.WeightedMidPrice},
		{"buy_depth", &e.BuyDepth},
		{"sell_depth", &e.SellDepth},
	}
	for _, d := range decimals {
		v, err := decimal.NewFromString(vals[d.field])
		if err != nil {
			return domain.ChartEntry{}, fmt.Errorf("field %s: %w", d.field, err)
		}
		*d.dst = v
	}

	ns, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.ChartEntry{}, fmt.Errorf("field ts: %w", err)
	}
	e.RenderedAt = time.Unix(0, ns).UTC()
	return e, nil
}

var _ domain.ChartCache = (*ChartCache)(nil)
