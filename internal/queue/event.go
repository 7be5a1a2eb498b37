// Package queue defines the audit events exchanged over the message
// broker and the publisher/consumer that move them.
package queue

// Action identifies which mutation produced a SeatEvent.
type Action string

const (
	ActionHold    Action = "hold"
	ActionRelease Action = "release"
	ActionConfirm Action = "confirm"
	ActionReset   Action = "reset"
	ActionExpire  Action = "expire"
)

// SeatEvent is published after every committed seat mutation.  It
// carries enough for downstream consumers to audit or analyze without
// querying the primary database.  Reset events are the reason this
// stream exists at all: they can revert sold seats, and the audit log is
// the only trace of who did that.
type SeatEvent struct {
	Action     Action   `json:"action"`
	SeatIDs    []string `json:"seat_ids,omitempty"`
	ActorID    uint64   `json:"actor_id,omitempty"`
	Actor      string   `json:"actor,omitempty"`
	TotalCents uint32   `json:"total_cents,omitempty"`
	OccurredAt string   `json:"occurred_at"`
}
