package model

import "errors"

// Error taxonomy for the scheduling core. Handlers map these onto HTTP
// status codes; everything else is treated as an internal error.
var (
	// ErrValidation marks malformed input, rejected before any mutation.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a slot that is already booked. Callers must
	// re-resolve availability instead of retrying the same slot.
	ErrConflict = errors.New("slot already booked")

	// ErrNotFound marks a missing document.
	ErrNotFound = errors.New("not found")

	// ErrNotLinked marks a doctor without an external calendar credential.
	ErrNotLinked = errors.New("external calendar not linked")

	// ErrSyncFailed marks a transient external calendar failure; retryable.
	ErrSyncFailed = errors.New("external calendar sync failed")

	// ErrStoreUnavailable marks a transient persistence failure; retryable
	// with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)
