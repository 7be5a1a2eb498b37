package model

import "time"

// SeatClass is the fare tier of a seat.  The flight carries exactly two
// cabins; ordering matters for snapshots (first class is listed before
// economy, which `ORDER BY class DESC` preserves with these values).
type SeatClass string

const (
	ClassFirst   SeatClass = "first"
	ClassEconomy SeatClass = "economy"
)

// SeatState is the lifecycle state of a seat.  A seat is in exactly one
// state at any instant.  Valid transitions:
//
//	free -> held   (hold, atomic conditional update)
//	held -> free   (release, or hold expiry)
//	held -> sold   (confirm transaction only)
//	*    -> free   (administrative reset)
//
// "sold" is terminal under normal flow.
type SeatState string

const (
	StateFree SeatState = "free"
	StateHeld SeatState = "held"
	StateSold SeatState = "sold"
)

// Valid reports whether s is one of the three known states.
func (s SeatState) Valid() bool {
	switch s {
	case StateFree, StateHeld, StateSold:
		return true
	}
	return false
}

// Seat mirrors a row of the `seats` table.  Seat identity is immutable:
// rows are provisioned once by the schema seed and never created or
// destroyed at runtime.  HeldAt is set when a hold is taken and cleared
// on release or sale; only the expiry worker consumes it.
//
// Fields:
//
//	ID     – seat label, a class letter followed by a number (e.g. "A1", "B12").
//	Class  – fare tier (first | economy).
//	State  – current lifecycle state (free | held | sold).
//	HeldAt – when the current hold was taken; nil unless State == held.
type Seat struct {
	ID     string     `json:"id"`
	Class  SeatClass  `json:"class"`
	State  SeatState  `json:"state"`
	HeldAt *time.Time `json:"-"`
}
