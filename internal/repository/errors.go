// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let higher layers such as the
// reservation engine and the websocket handlers distinguish failure
// scenarios without string matching: a hold that loses the race maps to
// ErrSeatUnavailable, an unknown id to ErrSeatNotFound, and so on.
package repository

import (
	"errors"
	"fmt"
)

// ErrSeatNotFound is returned when a referenced seat id has no row.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatUnavailable is returned when a state precondition failed at
// transition time, e.g. holding a seat that is no longer free.  Confirm
// failures carry the offending seat via SeatUnavailableError, which
// unwraps to this sentinel.
var ErrSeatUnavailable = errors.New("seat not available")

// ErrUsernameExists and ErrEmailExists signal registration conflicts.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// SeatUnavailableError names the first seat that blocked a multi-seat
// confirm.  errors.Is(err, ErrSeatUnavailable) holds for it.
type SeatUnavailableError struct {
	SeatID string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %s not available", e.SeatID)
}

func (e *SeatUnavailableError) Unwrap() error { return ErrSeatUnavailable }
