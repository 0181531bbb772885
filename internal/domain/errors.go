package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOrder     = errors.New("invalid order parameters")
	ErrSigningFailed    = errors.New("signing failed")
	ErrLockHeld         = errors.New("lock already held")
	ErrThinBook         = errors.New("order book too thin")
	ErrQuoteComputation = errors.New("quote computation failed")
)

// MinOrdersPerSide is the number of resting orders each side of the book
// needs before the bot will make a market.
const MinOrdersPerSide = 2

// ThinBookError reports that one side of the book does not hold enough
// resting orders. It is fatal for the current cycle.
type ThinBookError struct {
	Side Side
	Have int
	Need int
}

func (e *ThinBookError) Error() string {
	return fmt.Sprintf("order book too thin: %d %s order(s), need at least %d; seed the book manually before starting the bot",
		e.Have, e.Side, e.Need)
}

// Is lets errors.Is match ErrThinBook.
func (e *ThinBookError) Is(target error) bool {
	return target == ErrThinBook
}

// QuoteComputationError reports that a derived quote (best price, weighted
// mid) is undefined. Once the book-health guard has passed this is an
// invariant violation.
type QuoteComputationError struct {
	Quantity string
	Reason   string
}

func (e *QuoteComputationError) Error() string {
	return fmt.Sprintf("cannot compute %s: %s", e.Quantity, e.Reason)
}

// Is lets errors.Is match ErrQuoteComputation.
func (e *QuoteComputationError) Is(target error) bool {
	return target == ErrQuoteComputation
}
