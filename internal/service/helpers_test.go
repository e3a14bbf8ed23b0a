package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
	"github.com/iliyamo/bus-seat-admin/internal/repository/memstore"
)

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// tickingClock returns a goroutine-safe clock that advances one second
// per call, so every write gets a distinct timestamp.
func tickingClock() func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return testStart.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type fixture struct {
	store    repository.Store
	recorder *ActivityRecorder
	seats    *SeatRegistry
	ledger   *BookingLedger
	places   *PlaceCatalog
	pickup   model.PickupPoint
	dest     model.Destination
	events   *recordingPublisher
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newFixture(t *testing.T, opts ...LedgerOption) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	clock := tickingClock()

	recorder := NewActivityRecorder(store.Activities(), quietLogger())
	recorder.now = clock
	seats := NewSeatRegistry(store, recorder, 31)
	seats.now = clock
	places := NewPlaceCatalog(store, recorder)
	places.now = clock
	events := &recordingPublisher{}

	all := append([]LedgerOption{WithClock(clock), WithEventPublisher(events), WithLogger(quietLogger())}, opts...)
	ledger := NewBookingLedger(store, seats, recorder, all...)

	if _, err := seats.Initialize(ctx, "", 0); err != nil {
		t.Fatalf("initialize seats: %v", err)
	}
	pickup, err := places.CreatePickupPoint(ctx, "", "Apowa")
	if err != nil {
		t.Fatalf("create pickup: %v", err)
	}
	dest, err := places.CreateDestination(ctx, "", "Accra", 4000)
	if err != nil {
		t.Fatalf("create destination: %v", err)
	}
	return &fixture{
		store: store, recorder: recorder, seats: seats, ledger: ledger, places: places,
		pickup: pickup, dest: dest, events: events,
	}
}

func (f *fixture) request(seat int) CreateBookingRequest {
	return CreateBookingRequest{
		FullName:           "Ama Mensah",
		Class:              "Level 200",
		Email:              "ama@example.com",
		Phone:              "0240000000",
		ContactPersonName:  "Kofi Mensah",
		ContactPersonPhone: "0200000000",
		PickupPointID:      f.pickup.ID,
		DestinationID:      f.dest.ID,
		DepartureDate:      "2025-03-10",
		SeatNumber:         seat,
		AmountCents:        4000,
	}
}

func (f *fixture) mustCreate(t *testing.T, seat int) model.Booking {
	t.Helper()
	res, err := f.ledger.CreateBooking(context.Background(), f.request(seat))
	if err != nil {
		t.Fatalf("create booking for seat %d: %v", seat, err)
	}
	return res.Booking
}

func (f *fixture) seat(t *testing.T, n int) model.Seat {
	t.Helper()
	s, err := f.seats.Get(context.Background(), n)
	if err != nil {
		t.Fatalf("get seat %d: %v", n, err)
	}
	return s
}

// assertInvariant checks that occupied seats and non-cancelled bookings
// are in one-to-one correspondence.
func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	bookings, err := Collect(f.ledger.List(ctx, nil))
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	seats, err := f.seats.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	active := map[string]int{}
	for _, b := range bookings {
		if b.Status.Active() {
			active[b.ID] = b.SeatNumber
		}
	}
	occupied := 0
	for _, s := range seats {
		if s.State != model.SeatOccupied {
			if s.BookingID != nil {
				t.Fatalf("seat %d is %s but references %s", s.SeatNumber, s.State, *s.BookingID)
			}
			continue
		}
		occupied++
		if s.BookingID == nil {
			t.Fatalf("seat %d occupied without booking", s.SeatNumber)
		}
		if n, ok := active[*s.BookingID]; !ok || n != s.SeatNumber {
			t.Fatalf("seat %d references %s which is not an active booking for it", s.SeatNumber, *s.BookingID)
		}
	}
	if occupied != len(active) {
		t.Fatalf("occupied seats = %d, active bookings = %d", occupied, len(active))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type failingActivities struct{}

func (failingActivities) Insert(context.Context, model.Activity) error {
	return errors.New("audit table locked")
}

func (failingActivities) List(context.Context, int, int) ([]model.Activity, error) {
	return nil, errors.New("audit table locked")
}

// countingStore counts BookingRepo.List calls made outside transactions.
type countingStore struct {
	repository.Store
	lists *int
}

func (s countingStore) Bookings() repository.BookingRepo {
	return countingBookings{BookingRepo: s.Store.Bookings(), lists: s.lists}
}

type countingBookings struct {
	repository.BookingRepo
	lists *int
}

func (b countingBookings) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	*b.lists++
	return b.BookingRepo.List(ctx, f)
}

// brokenStore fails every transaction with an infrastructure error.
type brokenStore struct {
	repository.Store
}

func (brokenStore) WithTx(context.Context, func(repository.Repos) error) error {
	return errors.New("connection refused")
}
