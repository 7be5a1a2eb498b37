package ws

import (
	"errors"
	"fmt"

	"github.com/avioline/flight-seat-reservation/internal/engine"
	"github.com/avioline/flight-seat-reservation/internal/model"
	"github.com/avioline/flight-seat-reservation/internal/repository"
)

// Client -> server action types.
const (
	actionHoldSeat    = "hold-seat"
	actionReleaseSeat = "release-seat"
	actionConfirm     = "confirm"
	actionResetSeats  = "reset-seats"
)

// Server -> client emit types.
const (
	emitState       = "state"
	emitReceipt     = "receipt"
	emitActionError = "action-error"
)

// Short operation names used in action-error payloads so the client can
// tell which of its requests failed.
const (
	opHold    = "hold"
	opRelease = "release"
	opConfirm = "confirm"
	opReset   = "reset"
)

// clientMessage is the single envelope for every inbound action.  Which
// fields matter depends on Type; unknown fields are ignored.
type clientMessage struct {
	Type          string            `json:"type"`
	SeatID        string            `json:"seatId,omitempty"`
	Seats         []model.Selection `json:"seats,omitempty"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
	Buyer         string            `json:"buyer,omitempty"`
}

// stateMessage is the full snapshot broadcast to every observer and sent
// to each new connection.
type stateMessage struct {
	Type   string       `json:"type"`
	Flight model.Flight `json:"flight"`
	Seats  []model.Seat `json:"seats"`
}

// receiptMessage is delivered only to the confirming connection.
type receiptMessage struct {
	Type    string         `json:"type"`
	Receipt *model.Receipt `json:"receipt"`
}

// errorMessage is delivered only to the connection whose action failed.
type errorMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// reasonFor flattens the engine/repository error taxonomy into the
// client-facing reason string.  Anything unrecognized is a store
// failure; the detail stays in the server log, not on the wire.
func reasonFor(err error) string {
	var unavailable *repository.SeatUnavailableError
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return "invalid request"
	case errors.Is(err, engine.ErrUnauthorized):
		return "login required"
	case errors.Is(err, engine.ErrForbidden):
		return "forbidden"
	case errors.As(err, &unavailable):
		return fmt.Sprintf("seat %s not available", unavailable.SeatID)
	case errors.Is(err, repository.ErrSeatUnavailable):
		return "seat not available"
	case errors.Is(err, repository.ErrSeatNotFound):
		return "invalid seat"
	default:
		return "database error"
	}
}
