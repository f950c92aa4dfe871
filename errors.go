package profit

import "errors"

// Errors reported by ledger, goal and coordinator operations.
//
// All of them are recoverable: an operation that returns one of these leaves
// the live state exactly as it was.
var (
	// ErrInvalidAmount is returned for non-numeric, zero or negative amounts
	// where a positive amount is required.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance is returned for withdrawals the account cannot cover.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrCapacityExceeded is returned when adding a goal beyond the active goal caps.
	ErrCapacityExceeded = errors.New("goal capacity exceeded")
	// ErrMalformedSnapshot is returned when a persisted document cannot be trusted.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrInvalidAllocation is returned when a funded profit split was staged
	// for another milestone state or does not cover the amount.
	ErrInvalidAllocation = errors.New("invalid allocation")

	ErrNotFound     = errors.New("not found")
	ErrNotAchieved  = errors.New("goal is not achieved")
	ErrInvalidLabel = errors.New("invalid label")
	ErrInvalidKind  = errors.New("invalid transaction kind")
	ErrUndoExpired  = errors.New("undo entry expired or unknown")
)
