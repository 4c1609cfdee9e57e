package ports

import "errors"

var (
	// ErrUnauthorized is returned when a decision or cancellation is
	// attempted by an actor who does not own the ride or the booking.
	ErrUnauthorized = errors.New("actor is not allowed to perform this operation")

	// ErrStoreUnavailable wraps storage-layer connectivity failures. Callers
	// may retry; the engine performs no automatic retry itself.
	ErrStoreUnavailable = errors.New("data store unavailable")

	// ErrInvalidDecision rejects decision verdicts outside ACCEPTED/REJECTED.
	ErrInvalidDecision = errors.New("decision must be ACCEPTED or REJECTED")
)
