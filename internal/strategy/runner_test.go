package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

type fakeSource struct {
	book    domain.OrderBook
	own     domain.OrderBook
	bookErr error
	calls   []string
}

func (f *fakeSource) OrderBook(ctx context.Context) (domain.OrderBook, error) {
	f.calls = append(f.calls, "book")
	return f.book, f.bookErr
}

func (f *fakeSource) OrdersFor(ctx context.Context, address string) (domain.OrderBook, error) {
	f.calls = append(f.calls, "own:"+address)
	return f.own, nil
}

type fakeBalances struct {
	ether, tokens decimal.Decimal
	decimals      int32
}

func (f *fakeBalances) BaseTokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return f.tokens, nil
}

func (f *fakeBalances) QuoteBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return f.ether, nil
}

func (f *fakeBalances) TokenDecimals(ctx context.Context, token string) (int32, error) {
	return f.decimals, nil
}

type fakeExecutor struct {
	cycleID string
	actions []domain.Action
	err     error
}

func (f *fakeExecutor) Execute(ctx context.Context, cycleID string, actions []domain.Action) error {
	f.cycleID = cycleID
	f.actions = actions
	return f.err
}

type fakeLocks struct {
	held     bool
	key      string
	released bool
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.key = key
	if f.held {
		return nil, domain.ErrLockHeld
	}
	return func() { f.released = true }, nil
}

type fakeBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

type fakeCharts struct {
	entry domain.ChartEntry
}

func (f *fakeCharts) SetChart(ctx context.Context, e domain.ChartEntry) error {
	f.entry = e
	return nil
}

func (f *fakeCharts) GetChart(ctx context.Context, token string) (domain.ChartEntry, error) {
	return f.entry, nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	f.events = append(f.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRunner(src *fakeSource, exec *fakeExecutor, deps RunnerDeps) *Runner {
	deps.Source = src
	deps.Balances = &fakeBalances{ether: dec("10"), tokens: dec("5"), decimals: 2}
	deps.Decider = NewDecider(testConfig(), nil)
	deps.Executor = exec
	return NewRunner(RunnerConfig{
		Address:  "0xbot",
		Token:    "0xtoken",
		Interval: time.Minute,
	}, deps, discardLogger())
}

func TestRunner_RunOnce(t *testing.T) {
	src := &fakeSource{book: wideBook()}
	exec := &fakeExecutor{}
	locks := &fakeLocks{}
	bus := &fakeBus{}
	charts := &fakeCharts{}
	r := newTestRunner(src, exec, RunnerDeps{Locks: locks, Bus: bus, Charts: charts})

	res, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(exec.actions) != 2 || exec.cycleID != res.CycleID {
		t.Fatalf("executor got %d actions for cycle %q", len(exec.actions), exec.cycleID)
	}
	if locks.key != "lock:cycle:0xbot:0xtoken" || !locks.released {
		t.Fatalf("lock not taken and released: %+v", locks)
	}
	if len(src.calls) != 2 || src.calls[1] != "own:0xbot" {
		t.Fatalf("unexpected source calls %v", src.calls)
	}
	if charts.entry.Chart == "" || charts.entry.Token != "0xtoken" {
		t.Fatalf("chart not cached: %+v", charts.entry)
	}

	if len(bus.payloads) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(bus.payloads))
	}
	var summary domain.CycleSummary
	if err := json.Unmarshal(bus.payloads[0], &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.CycleID != res.CycleID || len(summary.Actions) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if got := r.RecentCycles(5); len(got) != 1 || got[0].CycleID != res.CycleID {
		t.Fatalf("cycle not remembered: %+v", got)
	}
}

func TestRunner_SkipsWhenLocked(t *testing.T) {
	src := &fakeSource{book: wideBook()}
	exec := &fakeExecutor{}
	r := newTestRunner(src, exec, RunnerDeps{Locks: &fakeLocks{held: true}})

	res, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !res.Skipped {
		t.Fatal("expected skipped cycle")
	}
	if len(src.calls) != 0 || exec.actions != nil {
		t.Fatal("skipped cycle must not fetch or execute")
	}
}

func TestRunner_ThinBookNotifies(t *testing.T) {
	book := wideBook()
	book.Buys = book.Buys[:1]
	src := &fakeSource{book: book}
	exec := &fakeExecutor{}
	n := &fakeNotifier{}
	r := newTestRunner(src, exec, RunnerDeps{Notifier: n})

	_, err := r.RunOnce(context.Background())
	if !errors.Is(err, domain.ErrThinBook) {
		t.Fatalf("expected ErrThinBook, got %v", err)
	}
	if len(n.events) != 1 || n.events[0] != "thin_book" {
		t.Fatalf("expected thin_book notification, got %v", n.events)
	}
	if exec.actions != nil {
		t.Fatal("executor must not run on a failed cycle")
	}
}

func TestRunner_FetchErrorFailsCycle(t *testing.T) {
	boom := errors.New("exchange down")
	src := &fakeSource{bookErr: boom}
	n := &fakeNotifier{}
	r := newTestRunner(src, &fakeExecutor{}, RunnerDeps{Notifier: n})

	_, err := r.RunOnce(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if len(n.events) != 1 || n.events[0] != "cycle_error" {
		t.Fatalf("expected cycle_error notification, got %v", n.events)
	}
}

func TestRunner_ExecuteError(t *testing.T) {
	boom := errors.New("rejected")
	r := newTestRunner(&fakeSource{book: wideBook()}, &fakeExecutor{err: boom}, RunnerDeps{})

	res, err := r.RunOnce(context.Background())
	if !errors.Is(err, boom) || !errors.Is(res.Err, boom) {
		t.Fatalf("expected execute error, got %v", err)
	}
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{}
	r := newTestRunner(&fakeSource{book: wideBook()}, exec, RunnerDeps{})

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.LastRun().IsZero() {
		select {
		case <-deadline:
			t.Fatal("first cycle did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
