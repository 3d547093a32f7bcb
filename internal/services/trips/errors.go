package trips

import "github.com/pkg/errors"

var (
	// ErrNotFound: unknown trip or pickup id. The caller's view is stale.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState: the pickup already left pending (or lost a race), is not next
	// in pickup order, or its trip is not active.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidCode: supplied code does not match. The record is unchanged and the caller may retry.
	ErrInvalidCode = errors.New("invalid code")
	// ErrInvalidTrip: a feed record violates the trip/pickup invariants.
	ErrInvalidTrip = errors.New("invalid trip")
)

// IsStale reports whether err means the caller should re-sync from the feed instead of retrying.
func IsStale(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState)
}
