// Package engine implements the reservation core: it validates
// preconditions against the caller's session, executes seat transitions
// through the durable store, and fans the resulting snapshot out to
// every observer.  The engine itself is stateless between calls — all
// exclusion is delegated to the store's transactional concurrency
// control, so it never holds an in-process lock across a blocking store
// operation.
package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/avioline/flight-seat-reservation/internal/model"
	"github.com/avioline/flight-seat-reservation/internal/queue"
)

// Store is the durable seat store the engine drives.  The production
// implementation is repository.SeatRepo; tests substitute an in-memory
// fake with the same atomicity guarantees.
type Store interface {
	// List returns every seat in canonical snapshot order.
	List(ctx context.Context) ([]model.Seat, error)
	// Hold atomically transitions free->held or reports why it could not.
	Hold(ctx context.Context, seatID string) error
	// Release transitions held->free; no-op for unknown or non-held seats.
	Release(ctx context.Context, seatID string) error
	// ConfirmSeats transitions every id held->sold in one all-or-nothing
	// transaction and returns the rows it sold.
	ConfirmSeats(ctx context.Context, seatIDs []string) ([]model.Seat, error)
	// ResetAll sets every seat to free regardless of state.
	ResetAll(ctx context.Context) error
	// ReleaseExpired frees holds older than ttl, returning the count.
	ReleaseExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

// Broadcaster receives the post-commit snapshot of every successful
// mutation.  The production implementation is the websocket hub.
type Broadcaster interface {
	BroadcastState(snap Snapshot)
}

// EventSink receives audit events for committed mutations.  The
// production implementation publishes to RabbitMQ; a nil sink disables
// auditing.
type EventSink interface {
	Publish(ctx context.Context, ev queue.SeatEvent) error
}

// Snapshot pairs the full seat list with the static flight descriptor.
// It is what every observer sees after each committed mutation and what
// a new connection receives on connect.
type Snapshot struct {
	Flight model.Flight `json:"flight"`
	Seats  []model.Seat `json:"seats"`
}

// Engine arbitrates concurrent hold/release/confirm/reset traffic
// against the seat store.
type Engine struct {
	store  Store
	hub    Broadcaster
	events EventSink
	flight model.Flight
	fares  map[model.SeatClass]uint32
}

// New constructs an Engine.  hub and events may be nil; mutations then
// commit without fan-out, which unit tests rely on.
func New(store Store, hub Broadcaster, events EventSink, flight model.Flight, fareFirst, fareEconomy uint32) *Engine {
	return &Engine{
		store:  store,
		hub:    hub,
		events: events,
		flight: flight,
		fares: map[model.SeatClass]uint32{
			model.ClassFirst:   fareFirst,
			model.ClassEconomy: fareEconomy,
		},
	}
}

// Fare returns the price of a seat class from the fixed fare table.
func (e *Engine) Fare(class model.SeatClass) uint32 {
	return e.fares[class]
}

// Snapshot reads the current seat map plus flight descriptor.  Read-only;
// it never caches — every call reflects committed store state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	seats, err := e.store.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Flight: e.flight, Seats: seats}, nil
}

// Hold attempts the atomic free->held transition for one seat.  Any
// connected party, authenticated or not, may hold a seat; sale
// finalization is gated by the stronger confirm transaction instead.
func (e *Engine) Hold(ctx context.Context, sess *model.Session, seatID string) error {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return ErrInvalidRequest
	}
	if err := e.store.Hold(ctx, seatID); err != nil {
		return err
	}
	e.fanOut(ctx, queue.ActionHold, sess, []string{seatID}, 0)
	return nil
}

// Release frees a held seat.  A blank or unknown id is a silent no-op;
// the snapshot still goes out because the legacy protocol always
// re-broadcasts after a release request.
func (e *Engine) Release(ctx context.Context, sess *model.Session, seatID string) error {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return nil
	}
	if err := e.store.Release(ctx, seatID); err != nil {
		return err
	}
	e.fanOut(ctx, queue.ActionRelease, sess, []string{seatID}, 0)
	return nil
}

// Confirm finalizes held seats as sold and prices the receipt.  The
// caller must be authenticated and the selection non-empty; the store
// transaction enforces everything else (existence, held state,
// all-or-nothing).  The receipt goes only to the initiating connection;
// the snapshot broadcast reaches everyone.
func (e *Engine) Confirm(ctx context.Context, sess *model.Session, sels []model.Selection, paymentMethod, buyer string) (*model.Receipt, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if len(sels) == 0 {
		return nil, ErrInvalidRequest
	}

	// Deduplicate ids while remembering each seat's category label.  A
	// duplicated id would otherwise make the row-count check in the store
	// reject a legitimate request.
	ids := make([]string, 0, len(sels))
	category := make(map[string]string, len(sels))
	for _, sel := range sels {
		id := strings.TrimSpace(sel.SeatID)
		if id == "" {
			return nil, ErrInvalidRequest
		}
		if _, seen := category[id]; seen {
			continue
		}
		category[id] = sel.Category
		ids = append(ids, id)
	}

	sold, err := e.store.ConfirmSeats(ctx, ids)
	if err != nil {
		return nil, err
	}

	classByID := make(map[string]model.SeatClass, len(sold))
	for _, s := range sold {
		classByID[s.ID] = s.Class
	}

	lines := make([]model.ReceiptLine, 0, len(ids))
	var total uint32
	for _, id := range ids {
		cat := category[id]
		if cat == "" {
			cat = "adult"
		}
		price := e.Fare(classByID[id])
		total += price
		lines = append(lines, model.ReceiptLine{
			SeatID:     id,
			Class:      classByID[id],
			Category:   cat,
			PriceCents: price,
		})
	}

	name := strings.TrimSpace(buyer)
	if name == "" {
		name = sess.Username
	}

	e.fanOut(ctx, queue.ActionConfirm, sess, ids, total)
	return &model.Receipt{
		Flight:        e.flight,
		PaymentMethod: paymentMethod,
		Buyer:         name,
		SeatCount:     len(ids),
		Lines:         lines,
		TotalCents:    total,
	}, nil
}

// Reset sets every seat back to free, including sold ones.  Admin only.
// The sold-state bypass replicates the legacy system; every invocation
// is logged and audited so an "unsold" ticket can at least be traced.
func (e *Engine) Reset(ctx context.Context, sess *model.Session) error {
	if !sess.IsAdmin() {
		return ErrForbidden
	}
	if err := e.store.ResetAll(ctx); err != nil {
		return err
	}
	log.Printf("WARN: seat reset by admin %q (id=%d): all seats freed, sold state bypassed", sess.Username, sess.UserID)
	e.fanOut(ctx, queue.ActionReset, sess, nil, 0)
	return nil
}

// ReclaimExpired frees holds older than ttl.  Called by the expiry
// worker; when nothing was reclaimed, no broadcast happens.
func (e *Engine) ReclaimExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := e.store.ReleaseExpired(ctx, ttl)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.fanOut(ctx, queue.ActionExpire, nil, nil, 0)
	}
	return n, nil
}

// fanOut runs the post-commit side effects of a successful mutation:
// exactly one snapshot broadcast, computed after the mutation committed,
// plus an audit event.  Neither can fail the already-committed
// operation; errors are logged and dropped.
func (e *Engine) fanOut(ctx context.Context, action queue.Action, sess *model.Session, seatIDs []string, totalCents uint32) {
	if e.hub != nil {
		snap, err := e.Snapshot(ctx)
		if err != nil {
			log.Printf("engine: snapshot after %s failed: %v", action, err)
		} else {
			e.hub.BroadcastState(snap)
		}
	}
	if e.events != nil {
		ev := queue.SeatEvent{
			Action:     action,
			SeatIDs:    seatIDs,
			TotalCents: totalCents,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		if sess != nil {
			ev.ActorID = sess.UserID
			ev.Actor = sess.Username
		}
		if err := e.events.Publish(ctx, ev); err != nil {
			log.Printf("engine: publish %s event failed: %v", action, err)
		}
	}
}
