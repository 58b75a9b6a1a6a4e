package domain

import "errors"

// Error taxonomy shared by all layers. Handlers classify with errors.Is
// and map to HTTP statuses; services wrap these with context via %w.
var (
	// ErrInvalidInput marks malformed parameters. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownAirport marks an airport code that does not resolve.
	ErrUnknownAirport = errors.New("unknown airport")

	// ErrNotFound marks a missing flight or booking.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a business-rule violation: missing passenger
	// name, flight no longer scheduled, insufficient seats at read time.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict marks an optimistic-lock failure. The whole
	// reservation is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrDuplicateReference marks a booking reference collision on
	// insert. The reference is the only random input, so callers retry
	// with a fresh one.
	ErrDuplicateReference = errors.New("duplicate booking reference")

	// ErrDependencyUnavailable marks an unreachable backing store.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
