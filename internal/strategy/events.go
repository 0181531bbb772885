package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// EventKind classifies informational events raised while deciding.
type EventKind string

const (
	EventDepthChart         EventKind = "depth_chart"
	EventArbitrage          EventKind = "arbitrage"
	EventArbitrageMissed    EventKind = "arbitrage_missed"
	EventCleanup            EventKind = "cleanup"
	EventSpreadTooTight     EventKind = "spread_too_tight"
	EventInsufficientFunds  EventKind = "insufficient_funds"
	EventInsufficientTokens EventKind = "insufficient_tokens"
	EventQuoteSkipped       EventKind = "quote_skipped"
	EventNewQuotes          EventKind = "new_quotes"
)

// Event is one informational occurrence. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind    EventKind
	Message string
	Side    domain.Side
	Amount  decimal.Decimal
	Price   decimal.Decimal
	Profit  decimal.Decimal
	Count   int
	Chart   string
}

// Observer receives the decision engine's informational events. It must
// not block for long; the engine calls it synchronously.
type Observer interface {
	OnInfo(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnInfo(ev Event) { f(ev) }

// Observers fans an event out to every non-nil observer in order.
type Observers []Observer

func (o Observers) OnInfo(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnInfo(ev)
		}
	}
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) OnInfo(Event) {}

// LogObserver writes events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer logging through logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With(slog.String("component", "decider"))}
}

func (l *LogObserver) OnInfo(ev Event) {
	switch ev.Kind {
	case EventDepthChart:
		l.logger.Debug("depth chart\n" + ev.Chart)
	case EventSpreadTooTight, EventQuoteSkipped:
		l.logger.Debug(ev.Message,
			slog.String("event", string(ev.Kind)),
			slog.String("side", string(ev.Side)),
			slog.String("price", ev.Price.String()),
		)
	default:
		attrs := []any{slog.String("event", string(ev.Kind))}
		if ev.Side != "" {
			attrs = append(attrs, slog.String("side", string(ev.Side)))
		}
		if !ev.Amount.IsZero() {
			attrs = append(attrs, slog.String("amount", ev.Amount.String()))
		}
		if !ev.Price.IsZero() {
			attrs = append(attrs, slog.String("price", ev.Price.String()))
		}
		if !ev.Profit.IsZero() {
			attrs = append(attrs, slog.String("profit", ev.Profit.String()))
		}
		if ev.Count > 0 {
			attrs = append(attrs, slog.Int("count", ev.Count))
		}
		l.logger.Info(ev.Message, attrs...)
	}
}

// Notifier delivers operator alerts. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

const notifyTimeout = 10 * time.Second

// NotifyObserver forwards the events an operator acts on to a Notifier.
type NotifyObserver struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewNotifyObserver returns an Observer forwarding to n.
func NewNotifyObserver(n Notifier, logger *slog.Logger) *NotifyObserver {
	return &NotifyObserver{
		notifier: n,
		logger:   logger.With(slog.String("component", "notify_observer")),
	}
}

func (o *NotifyObserver) OnInfo(ev Event) {
	var event, title string
	switch ev.Kind {
	case EventArbitrage:
		event, title = "arbitrage", "Arbitrage opportunity"
	case EventArbitrageMissed:
		event, title = "insufficient_funds", "Arbitrage missed"
	case EventInsufficientFunds, EventInsufficientTokens:
		event, title = "insufficient_funds", "Insufficient funds"
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := o.notifier.Notify(ctx, event, title, describe(ev)); err != nil {
		o.logger.Warn("notify failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// AuditObserver appends noteworthy events to the audit log.
type AuditObserver struct {
	store  domain.AuditStore
	logger *slog.Logger
}

// NewAuditObserver returns an Observer recording to store.
func NewAuditObserver(store domain.AuditStore, logger *slog.Logger) *AuditObserver {
	return &AuditObserver{
		store:  store,
		logger: logger.With(slog.String("component", "audit_observer")),
	}
}

func (o *AuditObserver) OnInfo(ev Event) {
	switch ev.Kind {
	case EventArbitrage, EventArbitrageMissed, EventCleanup,
		EventInsufficientFunds, EventInsufficientTokens:
	default:
		return
	}

	detail := map[string]any{"message": ev.Message}
	if ev.Side != "" {
		detail["side"] = string(ev.Side)
	}
	if !ev.Amount.IsZero() {
		detail["amount"] = ev.Amount.String()
	}
	if !ev.Price.IsZero() {
		detail["price"] = ev.Price.String()
	}
	if !ev.Profit.IsZero() {
		detail["profit"] = ev.Profit.String()
	}
	if ev.Count > 0 {
		detail["count"] = ev.Count
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := o.store.Log(ctx, string(ev.Kind), detail); err != nil {
		o.logger.Warn("audit log failed", slog.String("event", string(ev.Kind)), slog.String("error", err.Error()))
	}
}

func describe(ev Event) string {
	msg := ev.Message
	if ev.Side != "" {
		msg += fmt.Sprintf("\nside: %s", ev.Side)
	}
	if !ev.Amount.IsZero() {
		msg += fmt.Sprintf("\namount: %s", ev.Amount)
	}
	if !ev.Profit.IsZero() {
		msg += fmt.Sprintf("\npotential profit: %s", ev.Profit)
	}
	return msg
}
