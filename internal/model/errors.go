package model

import "errors"

// Per-symbol failure classes. Batch loops count these instead of aborting.
var (
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrDuplicate           = errors.New("duplicate recommendation")
)

// FailureKind names the taxonomy bucket of err, for logs and scan statistics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	default:
		return "other"
	}
}
