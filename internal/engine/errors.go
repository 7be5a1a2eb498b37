package engine

import "errors"

// Engine-level failures.  Seat-level failures (ErrSeatNotFound,
// ErrSeatUnavailable) come from the repository package; together they
// form the complete error taxonomy the transport layer translates into
// action-error payloads.
var (
	// ErrInvalidRequest covers malformed input: a missing seat id or an
	// empty selection list.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized is returned when an action requires an identity and
	// the connection is anonymous.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the identity lacks the role an action
	// requires.
	ErrForbidden = errors.New("forbidden")
)
