package strategy

import (
	"context"
	"testing"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

type memAudit struct {
	events []string
	detail []map[string]any
}

func (m *memAudit) Log(ctx context.Context, event string, detail map[string]any) error {
	m.events = append(m.events, event)
	m.detail = append(m.detail, detail)
	return nil
}

func (m *memAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestNotifyObserver_ForwardsSelectedEvents(t *testing.T) {
	n := &fakeNotifier{}
	obs := NewNotifyObserver(n, discardLogger())

	obs.OnInfo(Event{Kind: EventDepthChart, Chart: "x"})
	obs.OnInfo(Event{Kind: EventArbitrage, Profit: dec("1")})
	obs.OnInfo(Event{Kind: EventInsufficientTokens})
	obs.OnInfo(Event{Kind: EventNewQuotes, Count: 2})

	if len(n.events) != 2 || n.events[0] != "arbitrage" || n.events[1] != "insufficient_funds" {
		t.Fatalf("unexpected notifications %v", n.events)
	}
}

func TestAuditObserver_RecordsDetail(t *testing.T) {
	store := &memAudit{}
	obs := NewAuditObserver(store, discardLogger())

	obs.OnInfo(Event{Kind: EventSpreadTooTight})
	obs.OnInfo(Event{Kind: EventCleanup, Side: domain.SideSell, Count: 3, Message: "cancelling"})

	if len(store.events) != 1 || store.events[0] != string(EventCleanup) {
		t.Fatalf("unexpected audit events %v", store.events)
	}
	if store.detail[0]["count"] != 3 || store.detail[0]["side"] != "sell" {
		t.Fatalf("unexpected detail %v", store.detail[0])
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Observers{a, nil, b}.OnInfo(Event{Kind: EventCleanup})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatal("event not delivered to every observer")
	}
}
