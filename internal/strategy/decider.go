package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/depthchart"
	"github.com/saturn-network/market-maker-strategy/internal/domain"
	"github.com/saturn-network/market-maker-strategy/internal/market"
)

var two = decimal.NewFromInt(2)

// Inputs is everything one decision needs. All of it is fetched fresh at
// the start of the cycle.
type Inputs struct {
	Book          domain.OrderBook // the whole book for the pair
	Own           domain.OrderBook // the bot's own resting orders on the pair
	Balances      domain.Balances
	TokenDecimals int32
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Actions  []domain.Action
	Snapshot market.Snapshot
	Chart    string
}

// Decider evaluates the book and picks the next actions. It holds no state
// between calls.
type Decider struct {
	cfg Config
	obs Observer
}

// NewDecider creates a Decider. A nil observer discards events.
func NewDecider(cfg Config, obs Observer) *Decider {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Decider{cfg: cfg, obs: obs}
}

// ComputeNextActions returns the actions for this cycle. At most one kind of
// action is returned: arbitrage trades, cancellations, or new orders. An
// empty result is the steady state.
func (d *Decider) ComputeNextActions(in Inputs) ([]domain.Action, error) {
	dec, err := d.Decide(in)
	if err != nil {
		return nil, err
	}
	return dec.Actions, nil
}

// Decide is ComputeNextActions plus the snapshot and depth chart it worked
// from.
func (d *Decider) Decide(in Inputs) (Decision, error) {
	if err := checkBookHealth(in.Book); err != nil {
		return Decision{}, err
	}

	snap, err := market.NewSnapshot(in.Book)
	if err != nil {
		return Decision{}, fmt.Errorf("strategy: snapshot: %w", err)
	}

	chart := depthchart.Render(in.Book.Buys, in.Book.Sells)
	d.obs.OnInfo(Event{Kind: EventDepthChart, Chart: chart})

	dec := Decision{Snapshot: snap, Chart: chart, Actions: []domain.Action{}}
	available := d.availableBaseTokens(in.Balances)

	if actions := d.arbitrage(snap, available); len(actions) > 0 {
		dec.Actions = actions
		return dec, nil
	}
	if actions := d.cleanup(snap, in.Own); len(actions) > 0 {
		dec.Actions = actions
		return dec, nil
	}
	dec.Actions = d.newQuotes(snap, in, available)
	return dec, nil
}

func checkBookHealth(book domain.OrderBook) error {
	if n := len(book.Buys); n < domain.MinOrdersPerSide {
		return &domain.ThinBookError{Side: domain.SideBuy, Have: n, Need: domain.MinOrdersPerSide}
	}
	if n := len(book.Sells); n < domain.MinOrdersPerSide {
		return &domain.ThinBookError{Side: domain.SideSell, Have: n, Need: domain.MinOrdersPerSide}
	}
	return nil
}

// availableBaseTokens caps the wallet's token balance at TokenLimit.
func (d *Decider) availableBaseTokens(b domain.Balances) decimal.Decimal {
	tokens := b.Tokens
	if tokens.Sign() < 0 {
		return decimal.Zero
	}
	if d.cfg.TokenLimit.Sign() > 0 && tokens.GreaterThan(d.cfg.TokenLimit) {
		return d.cfg.TokenLimit
	}
	return tokens
}

func (d *Decider) arbitrage(snap market.Snapshot, available decimal.Decimal) []domain.Action {
	if !snap.Crossed() {
		return nil
	}

	matchable := decimal.Min(snap.BestBuy.Balance, snap.BestSell.Balance)
	gap := snap.Spread.Abs()
	if available.Sign() <= 0 {
		d.obs.OnInfo(Event{
			Kind:    EventArbitrageMissed,
			Message: "book is crossed but the bot holds no base tokens to arbitrage with",
			Profit:  matchable.Mul(gap),
		})
		return nil
	}

	amount := decimal.Min(matchable, available)
	if amount.Sign() <= 0 {
		d.obs.OnInfo(Event{
			Kind:    EventArbitrageMissed,
			Message: "book is crossed but the best orders have no balance left",
		})
		return nil
	}

	d.obs.OnInfo(Event{
		Kind:    EventArbitrage,
		Message: "arbitrage opportunity",
		Amount:  amount,
		Price:   snap.BestSellPrice,
		Profit:  amount.Mul(gap),
	})
	return []domain.Action{
		domain.Trade{Contract: snap.BestSell.Contract, OrderID: snap.BestSell.OrderID, Amount: amount},
		domain.Trade{Contract: snap.BestBuy.Contract, OrderID: snap.BestBuy.OrderID, Amount: amount},
	}
}

func (d *Decider) cleanup(snap market.Snapshot, own domain.OrderBook) []domain.Action {
	band := d.cfg.BandSize.Mul(d.cfg.Spread)
	lower := snap.WeightedMidPrice.Sub(band)
	upper := snap.WeightedMidPrice.Add(band)

	var cancels []domain.Action
	prune := func(side domain.Side, orders []domain.Order, outside func(domain.Order) bool) {
		dust, outliers := 0, 0
		for _, o := range orders {
			switch {
			case o.Notional().LessThanOrEqual(d.cfg.DustCutoff):
				dust++
			case outside(o):
				outliers++
			default:
				continue
			}
			cancels = append(cancels, domain.CancelOrder{Contract: o.Contract, OrderID: o.OrderID})
		}
		if dust+outliers > 0 {
			d.obs.OnInfo(Event{
				Kind:    EventCleanup,
				Message: fmt.Sprintf("cancelling %d dust and %d out-of-band order(s)", dust, outliers),
				Side:    side,
				Count:   dust + outliers,
			})
		}
	}

	prune(domain.SideBuy, own.Buys, func(o domain.Order) bool { return o.Price.LessThan(lower) })
	prune(domain.SideSell, own.Sells, func(o domain.Order) bool { return o.Price.GreaterThan(upper) })
	return cancels
}

func (d *Decider) newQuotes(snap market.Snapshot, in Inputs, available decimal.Decimal) []domain.Action {
	actions := []domain.Action{}
	if snap.Crossed() {
		return actions
	}
	if snap.Spread.LessThanOrEqual(d.cfg.Spread) {
		d.obs.OnInfo(Event{
			Kind:    EventSpreadTooTight,
			Message: "market spread at or below configured spread, not quoting",
			Price:   snap.Spread,
		})
		return actions
	}

	half := d.cfg.Spread.Div(two)

	if buy, ok := d.quoteBuy(snap, in, half); ok {
		actions = append(actions, buy)
	}
	if sell, ok := d.quoteSell(snap, in, available, half); ok {
		actions = append(actions, sell)
	}
	if len(actions) > 0 {
		d.obs.OnInfo(Event{Kind: EventNewQuotes, Message: "posting new quotes", Count: len(actions)})
	}
	return actions
}

func (d *Decider) quoteBuy(snap market.Snapshot, in Inputs, half decimal.Decimal) (domain.NewOrder, bool) {
	funds := decimal.Max(decimal.Zero, in.Balances.Ether.Sub(d.cfg.FundMinimum))
	if funds.LessThanOrEqual(d.cfg.DustCutoff) {
		if len(in.Own.Buys) == 0 {
			d.obs.OnInfo(Event{
				Kind:    EventInsufficientFunds,
				Message: "not enough ether above the reserve to post a buy",
				Side:    domain.SideBuy,
				Amount:  funds,
			})
		}
		return domain.NewOrder{}, false
	}

	price := snap.WeightedMidPrice.Sub(half).Round(PricePrecision)
	if price.LessThanOrEqual(snap.BestBuyPrice) || price.GreaterThanOrEqual(snap.BestSellPrice) {
		d.obs.OnInfo(Event{
			Kind:    EventQuoteSkipped,
			Message: "buy quote would not improve the top of book",
			Side:    domain.SideBuy,
			Price:   price,
		})
		return domain.NewOrder{}, false
	}

	amount := funds.Div(price).RoundDown(in.TokenDecimals)
	if amount.Sign() <= 0 {
		return domain.NewOrder{}, false
	}
	return domain.NewOrder{Side: domain.SideBuy, Amount: amount, Price: price}, true
}

func (d *Decider) quoteSell(snap market.Snapshot, in Inputs, available, half decimal.Decimal) (domain.NewOrder, bool) {
	tokens := available.Sub(domain.TotalBalance(in.Own.Sells))
	if tokens.Sign() <= 0 {
		if len(in.Own.Sells) == 0 {
			d.obs.OnInfo(Event{
				Kind:    EventInsufficientTokens,
				Message: "no free base tokens to post a sell",
				Side:    domain.SideSell,
			})
		}
		return domain.NewOrder{}, false
	}

	price := snap.WeightedMidPrice.Add(half).Round(PricePrecision)
	if price.GreaterThanOrEqual(snap.BestSellPrice) || price.LessThanOrEqual(snap.BestBuyPrice) {
		d.obs.OnInfo(Event{
			Kind:    EventQuoteSkipped,
			Message: "sell quote would not improve the top of book",
			Side:    domain.SideSell,
			Price:   price,
		})
		return domain.NewOrder{}, false
	}

	amount := tokens.RoundDown(in.TokenDecimals)
	if amount.Sign() <= 0 {
		return domain.NewOrder{}, false
	}
	return domain.NewOrder{Side: domain.SideSell, Amount: amount, Price: price}, true
}
