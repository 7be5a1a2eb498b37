package repository // repository defines data access for the seat inventory

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/avioline/flight-seat-reservation/internal/model"
)

// SeatRepo is the durable seat store.  It owns every write to the
// `seats` table and guarantees that each logical operation runs inside a
// single transaction (implicit single-statement or explicit multi-row).
// Callers never read seat state outside a transaction and write based on
// that stale read; the conditional WHERE clauses below are the whole
// concurrency story.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// List returns every seat in canonical snapshot order: class descending
// (first before economy), then the numeric portion of the id ascending.
// The ordering is computed in SQL so every caller renders seats the same
// way.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT id, class, state
	           FROM seats
	           ORDER BY class DESC, CAST(SUBSTRING(id, 2) AS UNSIGNED) ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0, 64)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.Class, &s.State); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// Hold performs the atomic free->held transition.  The state check and
// the write are one conditional UPDATE: it succeeds only if exactly one
// row matched both the id and the free precondition, so two concurrent
// holders can never both win.  On zero rows matched a follow-up probe
// distinguishes an unknown seat (ErrSeatNotFound) from a lost race
// (ErrSeatUnavailable).
func (r *SeatRepo) Hold(ctx context.Context, seatID string) error {
	const q = `UPDATE seats SET state = 'held', held_at = UTC_TIMESTAMP() WHERE id = ? AND state = 'free'`
	res, err := r.db.ExecContext(ctx, q, seatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM seats WHERE id = ?)`, seatID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSeatNotFound
	}
	return &SeatUnavailableError{SeatID: seatID}
}

// Release performs held->free.  Any connection may release any held seat;
// no ownership is tracked.  The WHERE clause keeps the state machine
// honest: a sold seat cannot be resurrected and an unknown id matches
// nothing, both of which are silent no-ops by design.
func (r *SeatRepo) Release(ctx context.Context, seatID string) error {
	const q = `UPDATE seats SET state = 'free', held_at = NULL WHERE id = ? AND state = 'held'`
	_, err := r.db.ExecContext(ctx, q, seatID)
	return err
}

// ConfirmSeats finalizes a purchase: inside one transaction it locks
// exactly the requested rows, verifies each exists and is held, and
// transitions all of them to sold.  Partial success is not possible; any
// verification failure rolls the whole transaction back and no seat
// state changes.  On success it returns the locked rows (id and class)
// so the caller can price the receipt from committed data.
func (r *SeatRepo) ConfirmSeats(ctx context.Context, seatIDs []string) ([]model.Seat, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock scope is precisely the requested set; unrelated seats stay
	// uncontended.
	sel := `SELECT id, class, state FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `) FOR UPDATE`
	args := make([]interface{}, len(seatIDs))
	for i, id := range seatIDs {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	locked := make([]model.Seat, 0, len(seatIDs))
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.Class, &s.State); err != nil {
			rows.Close()
			return nil, err
		}
		locked = append(locked, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if len(locked) != len(seatIDs) {
		return nil, ErrSeatNotFound
	}
	for _, s := range locked {
		if s.State != model.StateHeld {
			return nil, &SeatUnavailableError{SeatID: s.ID}
		}
	}

	upd := `UPDATE seats SET state = 'sold', held_at = NULL WHERE id IN (` + placeholders(len(seatIDs)) + `)`
	if _, err := tx.ExecContext(ctx, upd, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return locked, nil
}

// ResetAll sets every seat to free regardless of current state.  This
// deliberately bypasses the state machine, including sold seats; the
// engine gates it behind the admin role and audits every invocation.
func (r *SeatRepo) ResetAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE seats SET state = 'free', held_at = NULL`)
	return err
}

// ReleaseExpired frees every held seat whose hold is older than ttl and
// returns how many rows changed.  The cutoff comparison and the write are
// one conditional UPDATE, same as Hold, so a concurrent confirm either
// beats the reclaim (seat already sold, no match) or loses cleanly.
func (r *SeatRepo) ReleaseExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	const q = `UPDATE seats SET state = 'free', held_at = NULL
	           WHERE state = 'held' AND held_at IS NOT NULL AND held_at <= ?`
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := r.db.ExecContext(ctx, q, cutoff.Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// placeholders returns "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
