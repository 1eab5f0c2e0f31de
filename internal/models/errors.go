package models

import (
	"errors"
	"fmt"
)

// Expected, recoverable outcomes. Callers branch on these with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPaymentRejected   = errors.New("payment rejected")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")

	// ErrPaymentInProgress is returned when a second payment is attempted while
	// one is still with the gateway.
	ErrPaymentInProgress = fmt.Errorf("payment already in progress: %w", ErrInvalidTransition)

	// ErrStaleSlot signals a lost compare-and-set on a slot's version.
	ErrStaleSlot = errors.New("slot was modified concurrently")
)

// LedgerInvariantError reports a slot whose counters break 0 <= occupied <= capacity.
// It is a programming error, never a business outcome.
type LedgerInvariantError struct {
	SlotID   string
	Capacity int
	Occupied int
}

func (e *LedgerInvariantError) Error() string {
	return fmt.Sprintf("ledger invariant violated on slot %s: occupied=%d capacity=%d", e.SlotID, e.Occupied, e.Capacity)
}

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
