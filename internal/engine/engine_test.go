package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avioline/flight-seat-reservation/internal/model"
	"github.com/avioline/flight-seat-reservation/internal/queue"
	"github.com/avioline/flight-seat-reservation/internal/repository"
)

// fakeStore is an in-memory Store with the same atomicity guarantees as
// the MySQL repository: every operation holds the mutex for its whole
// read-check-write, so races resolve to exactly one winner.
type fakeStore struct {
	mu    sync.Mutex
	order []string
	seats map[string]*model.Seat
}

func newFakeStore(seats ...model.Seat) *fakeStore {
	s := &fakeStore{seats: make(map[string]*model.Seat)}
	for i := range seats {
		seat := seats[i]
		s.order = append(s.order, seat.ID)
		s.seats[seat.ID] = &seat
	}
	return s
}

func (s *fakeStore) List(ctx context.Context) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Seat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.seats[id])
	}
	return out, nil
}

func (s *fakeStore) Hold(ctx context.Context, seatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok {
		return repository.ErrSeatNotFound
	}
	if seat.State != model.StateFree {
		return &repository.SeatUnavailableError{SeatID: seatID}
	}
	now := time.Now().UTC()
	seat.State = model.StateHeld
	seat.HeldAt = &now
	return nil
}

func (s *fakeStore) Release(ctx context.Context, seatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok || seat.State != model.StateHeld {
		return nil
	}
	seat.State = model.StateFree
	seat.HeldAt = nil
	return nil
}

func (s *fakeStore) ConfirmSeats(ctx context.Context, seatIDs []string) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok {
			return nil, repository.ErrSeatNotFound
		}
		locked = append(locked, *seat)
	}
	for _, seat := range locked {
		if seat.State != model.StateHeld {
			return nil, &repository.SeatUnavailableError{SeatID: seat.ID}
		}
	}
	for _, id := range seatIDs {
		s.seats[id].State = model.StateSold
		s.seats[id].HeldAt = nil
	}
	return locked, nil
}

func (s *fakeStore) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		seat.State = model.StateFree
		seat.HeldAt = nil
	}
	return nil
}

func (s *fakeStore) ReleaseExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-ttl)
	var n int64
	for _, seat := range s.seats {
		if seat.State == model.StateHeld && seat.HeldAt != nil && !seat.HeldAt.After(cutoff) {
			seat.State = model.StateFree
			seat.HeldAt = nil
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) state(id string) model.SeatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[id].State
}

type recordingHub struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (h *recordingHub) BroadcastState(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snaps = append(h.snaps, snap)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}

type recordingSink struct {
	mu     sync.Mutex
	events []queue.SeatEvent
}

func (s *recordingSink) Publish(ctx context.Context, ev queue.SeatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) last() queue.SeatEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

var testFlight = model.Flight{Number: "QTR-0810", Origin: "DOH", Destination: "MAD"}

const (
	fareFirst   = 120000
	fareEconomy = 65950
)

func newTestEngine(store Store) (*Engine, *recordingHub, *recordingSink) {
	hub := &recordingHub{}
	sink := &recordingSink{}
	return New(store, hub, sink, testFlight, fareFirst, fareEconomy), hub, sink
}

func userSession() *model.Session {
	return &model.Session{UserID: 7, Username: "alice", Role: model.RoleUser}
}

func adminSession() *model.Session {
	return &model.Session{UserID: 1, Username: "root", Role: model.RoleAdmin}
}

func TestHoldTransitionsFreeSeat(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateFree})
	eng, hub, sink := newTestEngine(store)

	err := eng.Hold(context.Background(), userSession(), "A1")
	require.NoError(t, err)
	assert.Equal(t, model.StateHeld, store.state("A1"))
	assert.Equal(t, 1, hub.count(), "exactly one snapshot per committed mutation")
	assert.Equal(t, queue.ActionHold, sink.last().Action)
	assert.Equal(t, []string{"A1"}, sink.last().SeatIDs)
}

func TestHoldRejectsBlankSeatID(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateFree})
	eng, hub, _ := newTestEngine(store)

	for _, id := range []string{"", "   "} {
		err := eng.Hold(context.Background(), userSession(), id)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Zero(t, hub.count(), "failed mutations must not broadcast")
}

func TestHoldHeldSeatFails(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld})
	eng, hub, _ := newTestEngine(store)

	err := eng.Hold(context.Background(), userSession(), "A1")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
	var unavail *repository.SeatUnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "A1", unavail.SeatID)
	assert.Zero(t, hub.count())
}

func TestHoldUnknownSeat(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := newTestEngine(store)

	err := eng.Hold(context.Background(), userSession(), "Z99")
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
}

func TestConcurrentHoldSingleWinner(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "B5", Class: model.ClassEconomy, State: model.StateFree})
	eng, hub, _ := newTestEngine(store)

	const racers = 32
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- eng.Hold(context.Background(), userSession(), "B5")
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
		}
	}
	assert.Equal(t, 1, wins, "exactly one hold must win")
	assert.Equal(t, model.StateHeld, store.state("B5"))
	assert.Equal(t, 1, hub.count())
}

func TestReleaseBlankIsNoop(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld})
	eng, hub, _ := newTestEngine(store)

	require.NoError(t, eng.Release(context.Background(), userSession(), ""))
	assert.Zero(t, hub.count())
	assert.Equal(t, model.StateHeld, store.state("A1"))
}

func TestReleaseFreesHeldSeat(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld})
	eng, hub, _ := newTestEngine(store)

	require.NoError(t, eng.Release(context.Background(), userSession(), "A1"))
	assert.Equal(t, model.StateFree, store.state("A1"))
	assert.Equal(t, 1, hub.count())
}

func TestReleaseCannotResurrectSoldSeat(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateSold})
	eng, _, _ := newTestEngine(store)

	require.NoError(t, eng.Release(context.Background(), userSession(), "A1"))
	assert.Equal(t, model.StateSold, store.state("A1"))
}

func TestConfirmRequiresSession(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld})
	eng, _, _ := newTestEngine(store)

	_, err := eng.Confirm(context.Background(), nil, []model.Selection{{SeatID: "A1"}}, "card", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, model.StateHeld, store.state("A1"))
}

func TestConfirmRejectsEmptySelection(t *testing.T) {
	eng, _, _ := newTestEngine(newFakeStore())

	_, err := eng.Confirm(context.Background(), userSession(), nil, "card", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestConfirmPricesReceipt(t *testing.T) {
	store := newFakeStore(
		model.Seat{ID: "A2", Class: model.ClassFirst, State: model.StateHeld},
		model.Seat{ID: "B10", Class: model.ClassEconomy, State: model.StateHeld},
	)
	eng, hub, sink := newTestEngine(store)

	rcpt, err := eng.Confirm(context.Background(), userSession(), []model.Selection{
		{SeatID: "A2", Category: "adult"},
		{SeatID: "B10", Category: "child"},
	}, "card", "Alice Doe")
	require.NoError(t, err)

	assert.Equal(t, testFlight, rcpt.Flight)
	assert.Equal(t, "Alice Doe", rcpt.Buyer)
	assert.Equal(t, 2, rcpt.SeatCount)
	assert.Equal(t, uint32(fareFirst+fareEconomy), rcpt.TotalCents)
	require.Len(t, rcpt.Lines, 2)
	assert.Equal(t, uint32(fareFirst), rcpt.Lines[0].PriceCents)
	assert.Equal(t, "child", rcpt.Lines[1].Category)

	assert.Equal(t, model.StateSold, store.state("A2"))
	assert.Equal(t, model.StateSold, store.state("B10"))
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, queue.ActionConfirm, sink.last().Action)
	assert.Equal(t, uint32(fareFirst+fareEconomy), sink.last().TotalCents)
}

func TestConfirmDefaultsBuyerAndCategory(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateHeld})
	eng, _, _ := newTestEngine(store)

	rcpt, err := eng.Confirm(context.Background(), userSession(), []model.Selection{{SeatID: "B1"}}, "cash", "  ")
	require.NoError(t, err)
	assert.Equal(t, "alice", rcpt.Buyer)
	assert.Equal(t, "adult", rcpt.Lines[0].Category)
}

func TestConfirmDeduplicatesSelection(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateHeld})
	eng, _, _ := newTestEngine(store)

	rcpt, err := eng.Confirm(context.Background(), userSession(), []model.Selection{
		{SeatID: "B1", Category: "adult"},
		{SeatID: "B1", Category: "child"},
	}, "card", "")
	require.NoError(t, err)
	assert.Equal(t, 1, rcpt.SeatCount)
	assert.Equal(t, "adult", rcpt.Lines[0].Category, "first occurrence wins")
	assert.Equal(t, uint32(fareEconomy), rcpt.TotalCents)
}

func TestConfirmAllOrNothing(t *testing.T) {
	store := newFakeStore(
		model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld},
		model.Seat{ID: "A2", Class: model.ClassFirst, State: model.StateFree},
	)
	eng, hub, _ := newTestEngine(store)

	_, err := eng.Confirm(context.Background(), userSession(), []model.Selection{
		{SeatID: "A1"}, {SeatID: "A2"},
	}, "card", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)

	// Nothing moved: the held seat stays held, the free seat stays free.
	assert.Equal(t, model.StateHeld, store.state("A1"))
	assert.Equal(t, model.StateFree, store.state("A2"))
	assert.Zero(t, hub.count())
}

func TestResetRequiresAdmin(t *testing.T) {
	store := newFakeStore(model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateSold})
	eng, hub, _ := newTestEngine(store)

	assert.ErrorIs(t, eng.Reset(context.Background(), userSession()), ErrForbidden)
	assert.ErrorIs(t, eng.Reset(context.Background(), nil), ErrForbidden)
	assert.Equal(t, model.StateSold, store.state("A1"))
	assert.Zero(t, hub.count())
}

func TestResetFreesEverythingIncludingSold(t *testing.T) {
	store := newFakeStore(
		model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateSold},
		model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateHeld},
		model.Seat{ID: "B2", Class: model.ClassEconomy, State: model.StateFree},
	)
	eng, hub, sink := newTestEngine(store)

	require.NoError(t, eng.Reset(context.Background(), adminSession()))
	for _, id := range []string{"A1", "B1", "B2"} {
		assert.Equal(t, model.StateFree, store.state(id))
	}
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, queue.ActionReset, sink.last().Action)
	assert.Equal(t, "root", sink.last().Actor)
}

func TestReclaimExpiredBroadcastsOnlyOnChange(t *testing.T) {
	old := time.Now().UTC().Add(-time.Hour)
	store := newFakeStore(
		model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateHeld, HeldAt: &old},
		model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateFree},
	)
	eng, hub, _ := newTestEngine(store)

	n, err := eng.ReclaimExpired(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.StateFree, store.state("A1"))
	assert.Equal(t, 1, hub.count())

	// Second sweep finds nothing and stays silent.
	n, err = eng.ReclaimExpired(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, hub.count())
}

func TestSnapshotReflectsStoreOrder(t *testing.T) {
	store := newFakeStore(
		model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateFree},
		model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateSold},
	)
	eng, _, _ := newTestEngine(store)

	snap, err := eng.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testFlight, snap.Flight)
	require.Len(t, snap.Seats, 2)
	assert.Equal(t, "A1", snap.Seats[0].ID)
}

// Full walkthrough: hold, lose a race, release, confirm, reset.
func TestReservationLifecycle(t *testing.T) {
	store := newFakeStore(
		model.Seat{ID: "A1", Class: model.ClassFirst, State: model.StateFree},
		model.Seat{ID: "B1", Class: model.ClassEconomy, State: model.StateFree},
	)
	eng, _, _ := newTestEngine(store)
	ctx := context.Background()
	alice, admin := userSession(), adminSession()

	require.NoError(t, eng.Hold(ctx, alice, "A1"))
	err := eng.Hold(ctx, alice, "A1")
	var unavail *repository.SeatUnavailableError
	require.True(t, errors.As(err, &unavail))

	require.NoError(t, eng.Release(ctx, alice, "A1"))
	require.NoError(t, eng.Hold(ctx, alice, "A1"))

	rcpt, err := eng.Confirm(ctx, alice, []model.Selection{{SeatID: "A1"}}, "card", "")
	require.NoError(t, err)
	assert.Equal(t, uint32(fareFirst), rcpt.TotalCents)
	assert.Equal(t, model.StateSold, store.state("A1"))

	_, err = eng.Confirm(ctx, alice, []model.Selection{{SeatID: "A1"}}, "card", "")
	require.ErrorIs(t, err, repository.ErrSeatUnavailable)

	require.NoError(t, eng.Reset(ctx, admin))
	assert.Equal(t, model.StateFree, store.state("A1"))
}
