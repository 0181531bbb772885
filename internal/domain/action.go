package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind tags the variants of Action.
type ActionKind string

const (
	ActionNewOrder ActionKind = "new_order"
	ActionCancel   ActionKind = "cancel_order"
	ActionTrade    ActionKind = "trade"
)

// Action is the decision engine's only output. It is one of NewOrder,
// CancelOrder or Trade.
type Action interface {
	Kind() ActionKind
	isAction()
}

// NewOrder posts a fresh quote on one side of the book.
type NewOrder struct {
	Side   Side
	Amount decimal.Decimal
	Price  decimal.Decimal
}

// CancelOrder removes one of the bot's resting orders.
type CancelOrder struct {
	Contract string
	OrderID  string
}

// Trade fills Amount of someone else's resting order.
type Trade struct {
	Contract string
	OrderID  string
	Amount   decimal.Decimal
}

func (NewOrder) Kind() ActionKind    { return ActionNewOrder }
func (CancelOrder) Kind() ActionKind { return ActionCancel }
func (Trade) Kind() ActionKind       { return ActionTrade }

func (NewOrder) isAction()    {}
func (CancelOrder) isAction() {}
func (Trade) isAction()       {}

// ActionStatus tracks what happened to an action once handed to the
// executor.
type ActionStatus string

const (
	ActionStatusSubmitted ActionStatus = "submitted"
	ActionStatusSkipped   ActionStatus = "skipped"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusDryRun    ActionStatus = "dry_run"
)

// ActionRecord is the persisted form of an executed (or attempted) action.
type ActionRecord struct {
	ID        string
	CycleID   string
	Kind      ActionKind
	Side      Side
	Contract  string
	OrderID   string
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Status    ActionStatus
	TxHash    string
	Error     string
	CreatedAt time.Time
}

// RecordOf flattens an action into an ActionRecord without id or status.
func RecordOf(cycleID string, a Action) ActionRecord {
	rec := ActionRecord{CycleID: cycleID, Kind: a.Kind()}
	switch v := a.(type) {
	case NewOrder:
		rec.Side = v.Side
		rec.Amount = v.Amount
		rec.Price = v.Price
	case CancelOrder:
		rec.Contract = v.Contract
		rec.OrderID = v.OrderID
	case Trade:
		rec.Contract = v.Contract
		rec.OrderID = v.OrderID
		rec.Amount = v.Amount
	}
	return rec
}
