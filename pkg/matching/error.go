package matching

import "errors"

var (
	// ErrInvalidOrder rejects an admission before any state is touched:
	// non-positive price or quantity, unknown side, empty instrument.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrNotFound is returned for lookups against an unknown order id.
	ErrNotFound = errors.New("order not found")

	// ErrInconsistentState indicates a matching bug. An admission that hits
	// it aborts with no visible mutation.
	ErrInconsistentState = errors.New("inconsistent order state")
)
