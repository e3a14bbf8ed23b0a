package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/bus-seat-admin/internal/model"
)

func TestCreateBookingOccupiesSeat(t *testing.T) {
	f := newFixture(t)
	res, err := f.ledger.CreateBooking(context.Background(), f.request(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b := res.Booking
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentPending {
		t.Fatalf("status = %s/%s, want PENDING/PENDING", b.Status, b.PaymentStatus)
	}
	if b.AmountCents != 4000 || b.DestinationName != "Accra" || b.PickupPointName != "Apowa" {
		t.Fatalf("unexpected journey fields: %+v", b)
	}
	if res.Seat == nil || res.Seat.State != model.SeatOccupied || *res.Seat.BookingID != b.ID {
		t.Fatalf("result seat = %+v, want occupied by %s", res.Seat, b.ID)
	}
	if s := f.seat(t, 5); s.State != model.SeatOccupied || *s.BookingID != b.ID {
		t.Fatalf("stored seat = %+v", s)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != model.EventBookingCreated {
		t.Fatalf("events = %v", got)
	}
	f.assertInvariant(t)
}

func TestCreateBookingTakenSeatConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.mustCreate(t, 5)

	_, err := f.ledger.CreateBooking(context.Background(), f.request(5))
	if !errors.Is(err, ErrSeatConflict) {
		t.Fatalf("err = %v, want ErrSeatConflict", err)
	}
	if s := f.seat(t, 5); *s.BookingID != first.ID {
		t.Fatalf("seat reassigned to %s", *s.BookingID)
	}
	all, _ := Collect(f.ledger.List(context.Background(), nil))
	if len(all) != 1 {
		t.Fatalf("losing booking was persisted: %d bookings", len(all))
	}
	f.assertInvariant(t)
}

func TestCreateBookingConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	const k = 25

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := f.ledger.CreateBooking(context.Background(), f.request(5))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, res.Booking.ID)
			case errors.Is(err, ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || conflicts != k-1 {
		t.Fatalf("winners = %d, conflicts = %d; want 1 and %d", len(winners), conflicts, k-1)
	}
	if s := f.seat(t, 5); s.BookingID == nil || *s.BookingID != winners[0] {
		t.Fatalf("seat 5 = %+v, want held by %s", s, winners[0])
	}
	f.assertInvariant(t)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive, err := f.places.CreateDestination(ctx, "", "Kasoa", 7000)
	if err != nil {
		t.Fatalf("create destination: %v", err)
	}
	if _, err := f.places.DeactivateDestination(ctx, "", inactive.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CreateBookingRequest)
		field  string
	}{
		{"missing name", func(r *CreateBookingRequest) { r.FullName = "  " }, "full_name"},
		{"missing contact", func(r *CreateBookingRequest) { r.ContactPersonPhone = "" }, "contact_person_phone"},
		{"bad email", func(r *CreateBookingRequest) { r.Email = "not-an-email" }, "email"},
		{"seat zero", func(r *CreateBookingRequest) { r.SeatNumber = 0 }, "seat_number"},
		{"seat past capacity", func(r *CreateBookingRequest) { r.SeatNumber = 32 }, "seat_number"},
		{"past departure", func(r *CreateBookingRequest) { r.DepartureDate = "2025-02-28" }, "departure_date"},
		{"bad date", func(r *CreateBookingRequest) { r.DepartureDate = "10/03/2025" }, "departure_date"},
		{"amount mismatch", func(r *CreateBookingRequest) { r.AmountCents = 3999 }, "amount_cents"},
		{"negative amount", func(r *CreateBookingRequest) { r.AmountCents = -1 }, "amount_cents"},
		{"unknown pickup", func(r *CreateBookingRequest) { r.PickupPointID = "nope" }, "pickup_point_id"},
		{"inactive destination", func(r *CreateBookingRequest) { r.DestinationID = inactive.ID }, "destination_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request(7)
			tc.mutate(&req)
			_, err := f.ledger.CreateBooking(ctx, req)
			var ve *ValidationError
			if !errors.As(err, &ve) || !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
	if s := f.seat(t, 7); s.State != model.SeatAvailable {
		t.Fatalf("seat 7 changed by rejected requests: %+v", s)
	}
}

func TestCreateBookingTodayAllowedAndAmountDerived(t *testing.T) {
	f := newFixture(t)
	req := f.request(9)
	req.DepartureDate = "2025-03-01"
	req.AmountCents = 0
	res, err := f.ledger.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Booking.AmountCents != f.dest.PriceCents {
		t.Fatalf("amount = %d, want fare %d", res.Booking.AmountCents, f.dest.PriceCents)
	}
}

func TestCreateBookingOnBlockedSeatConflicts(t *testing.T) {
	f := newFixture(t)
	if _, err := f.seats.SetBlocked(context.Background(), "admin", 3, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := f.ledger.CreateBooking(context.Background(), f.request(3)); !errors.Is(err, ErrSeatConflict) {
		t.Fatalf("err = %v, want ErrSeatConflict", err)
	}
}

func TestApproveTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 5)

	res, err := f.ledger.Approve(ctx, "admin-1", b.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.Booking.Status != model.BookingApproved || !res.Booking.UpdatedAt.After(b.UpdatedAt) {
		t.Fatalf("approved booking = %+v", res.Booking)
	}
	if s := f.seat(t, 5); s.State != model.SeatOccupied {
		t.Fatalf("approve changed seat: %+v", s)
	}

	if _, err := f.ledger.Approve(ctx, "admin-1", b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second approve err = %v, want ErrInvalidTransition", err)
	}
	got, _ := f.ledger.Get(ctx, b.ID)
	if got.Status != model.BookingApproved {
		t.Fatalf("status after failed approve = %s", got.Status)
	}

	if _, err := f.ledger.Cancel(ctx, "admin-1", b.ID); err != nil {
		t.Fatalf("cancel approved: %v", err)
	}
	if _, err := f.ledger.Approve(ctx, "admin-1", b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve cancelled err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.ledger.Approve(ctx, "admin-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("approve missing err = %v, want ErrNotFound", err)
	}
	f.assertInvariant(t)
}

func TestCancelReleasesSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 12)

	res, err := f.ledger.Cancel(ctx, "admin-1", b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Booking.Status != model.BookingCancelled {
		t.Fatalf("status = %s", res.Booking.Status)
	}
	if res.Seat == nil || res.Seat.State != model.SeatAvailable || res.Seat.BookingID != nil {
		t.Fatalf("result seat = %+v, want available", res.Seat)
	}
	if _, err := f.ledger.Cancel(ctx, "admin-1", b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second cancel err = %v, want ErrInvalidTransition", err)
	}
	f.assertInvariant(t)

	// The seat can be booked again.
	f.mustCreate(t, 12)
	f.assertInvariant(t)
}

func TestDeleteReleasesSeatAndHidesBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 5)

	res, err := f.ledger.Delete(ctx, "admin-1", b.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Booking.ID != b.ID || res.Seat == nil || res.Seat.State != model.SeatAvailable {
		t.Fatalf("delete result = %+v", res)
	}
	all, _ := Collect(f.ledger.List(ctx, nil))
	for _, x := range all {
		if x.ID == b.ID {
			t.Fatal("deleted booking still listed")
		}
	}
	if s := f.seat(t, 5); s.State != model.SeatAvailable {
		t.Fatalf("seat 5 = %+v, want available", s)
	}
	if _, err := f.ledger.Delete(ctx, "admin-1", b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	f.assertInvariant(t)
}

func TestDeleteCancelledBookingLeavesRebookedSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.mustCreate(t, 4)
	if _, err := f.ledger.Cancel(ctx, "admin-1", old.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	current := f.mustCreate(t, 4)

	res, err := f.ledger.Delete(ctx, "admin-1", old.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Seat != nil {
		t.Fatalf("deleting a cancelled booking touched seat: %+v", res.Seat)
	}
	if s := f.seat(t, 4); s.BookingID == nil || *s.BookingID != current.ID {
		t.Fatalf("seat 4 = %+v, want held by %s", s, current.ID)
	}
	f.assertInvariant(t)
}

func TestInvariantAcrossMixedOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []string
	for seat := 1; seat <= 10; seat++ {
		ids = append(ids, f.mustCreate(t, seat).ID)
	}
	for i, id := range ids {
		var err error
		switch i % 4 {
		case 0:
			_, err = f.ledger.Approve(ctx, "a", id)
		case 1:
			_, err = f.ledger.Cancel(ctx, "a", id)
		case 2:
			_, err = f.ledger.Delete(ctx, "a", id)
		}
		if err != nil {
			t.Fatalf("op %d on %s: %v", i%4, id, err)
		}
		f.assertInvariant(t)
	}
	_, _ = f.seats.SetBlocked(ctx, "a", 2, true)
	_, _ = f.seats.SetBlocked(ctx, "a", 20, true)
	f.assertInvariant(t)
}

func TestListIsLazyAndRestartable(t *testing.T) {
	f := newFixture(t)
	for seat := 1; seat <= 5; seat++ {
		f.mustCreate(t, seat)
	}
	lists := 0
	ledger := NewBookingLedger(countingStore{Store: f.store, lists: &lists}, f.seats, nil, WithPageSize(2))
	seq := ledger.List(context.Background(), nil)
	if lists != 0 {
		t.Fatalf("List fetched %d pages before iteration", lists)
	}

	for _, err := range seq {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		break
	}
	if lists != 1 {
		t.Fatalf("pages fetched after one item = %d, want 1", lists)
	}

	var seats []int
	for b, err := range seq {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		seats = append(seats, b.SeatNumber)
	}
	// Newest first; pages of 2 over 5 rows need 3 fetches.
	want := []int{5, 4, 3, 2, 1}
	if len(seats) != len(want) {
		t.Fatalf("seats = %v, want %v", seats, want)
	}
	for i := range want {
		if seats[i] != want[i] {
			t.Fatalf("seats = %v, want %v", seats, want)
		}
	}
	if lists != 4 {
		t.Fatalf("total page fetches = %d, want 4", lists)
	}
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, 1)
	b := f.mustCreate(t, 2)
	f.mustCreate(t, 3)
	_, _ = f.ledger.Approve(ctx, "x", a.ID)
	_, _ = f.ledger.Cancel(ctx, "x", b.ID)

	for status, want := range map[model.BookingStatus]int{
		model.BookingPending:   1,
		model.BookingApproved:  1,
		model.BookingCancelled: 1,
	} {
		st := status
		got, err := Collect(f.ledger.List(ctx, &st))
		if err != nil {
			t.Fatalf("list %s: %v", status, err)
		}
		if len(got) != want {
			t.Fatalf("list %s = %d, want %d", status, len(got), want)
		}
	}
	bad := model.BookingStatus("LOST")
	if _, err := Collect(f.ledger.List(ctx, &bad)); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status err = %v, want ErrValidation", err)
	}
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 6)

	got, err := f.ledger.ConfirmPayment(ctx, model.PaymentResult{BookingID: b.ID, Reference: "PSK-1", Outcome: model.PaymentFailed})
	if err != nil {
		t.Fatalf("failed outcome: %v", err)
	}
	if got.PaymentStatus != model.PaymentPending || got.Status != model.BookingPending {
		t.Fatalf("failed payment changed booking: %+v", got)
	}

	got, err = f.ledger.ConfirmPayment(ctx, model.PaymentResult{BookingID: b.ID, Reference: "PSK-1", Outcome: model.PaymentSucceeded})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.PaymentStatus != model.PaymentCompleted || got.PaymentRef == nil || *got.PaymentRef != "PSK-1" {
		t.Fatalf("confirmed booking = %+v", got)
	}
	if got.Status != model.BookingPending {
		t.Fatalf("payment changed booking status to %s", got.Status)
	}
	before := len(f.events.types())
	again, err := f.ledger.ConfirmPayment(ctx, model.PaymentResult{BookingID: b.ID, Reference: "PSK-1", Outcome: model.PaymentSucceeded})
	if err != nil || !again.UpdatedAt.Equal(got.UpdatedAt) {
		t.Fatalf("repeat confirm = %+v, %v", again, err)
	}
	if len(f.events.types()) != before {
		t.Fatal("repeat confirm published another event")
	}

	if _, err := f.ledger.ConfirmPayment(ctx, model.PaymentResult{BookingID: "missing", Outcome: model.PaymentSucceeded}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing booking err = %v, want ErrNotFound", err)
	}
	if _, err := f.ledger.ConfirmPayment(ctx, model.PaymentResult{BookingID: b.ID, Outcome: "refunded"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown outcome err = %v, want ErrValidation", err)
	}
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, 8)

	broken := NewActivityRecorder(failingActivities{}, quietLogger())
	ledger := NewBookingLedger(f.store, f.seats, broken)
	if _, err := ledger.Approve(ctx, "admin-1", b.ID); err != nil {
		t.Fatalf("approve with broken audit log: %v", err)
	}
	if _, err := ledger.Delete(ctx, "admin-1", b.ID); err != nil {
		t.Fatalf("delete with broken audit log: %v", err)
	}
	f.assertInvariant(t)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	if _, err := f.ledger.CreateBooking(context.Background(), f.request(10)); err != nil {
		t.Fatalf("create with broker down: %v", err)
	}
}

func TestAdminActionsRecordOneActivityEach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, 1)
	b := f.mustCreate(t, 2)
	c := f.mustCreate(t, 3)

	_, _ = f.ledger.Approve(ctx, "admin-1", a.ID)
	_, _ = f.ledger.Cancel(ctx, "admin-1", b.ID)
	_, _ = f.ledger.Delete(ctx, "admin-1", c.ID)
	_, _ = f.seats.SetBlocked(ctx, "admin-1", 20, true)
	// Failed and no-op operations record nothing.
	_, _ = f.ledger.Approve(ctx, "admin-1", a.ID)
	_, _ = f.seats.SetBlocked(ctx, "admin-1", 20, true)

	got, err := f.recorder.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	want := []model.Action{
		model.ActionSeatToggled,
		model.ActionBookingDeleted,
		model.ActionBookingRejected,
		model.ActionBookingApproved,
	}
	if len(got) != len(want) {
		t.Fatalf("activities = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Action != want[i] || got[i].AdminID != "admin-1" {
			t.Fatalf("activity %d = %s by %s, want %s", i, got[i].Action, got[i].AdminID, want[i])
		}
	}
	if got[3].Metadata["booking_id"].Str != a.ID {
		t.Fatalf("approve metadata = %+v", got[3].Metadata)
	}
}

func TestStoreFailureIsStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	ledger := NewBookingLedger(brokenStore{Store: f.store}, f.seats, nil)
	_, err := ledger.CreateBooking(context.Background(), f.request(11))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.mustCreate(t, 1)
	b := f.mustCreate(t, 2)
	f.mustCreate(t, 3)
	_, _ = f.ledger.Approve(ctx, "x", a.ID)
	_, _ = f.ledger.Cancel(ctx, "x", b.ID)
	_, _ = f.seats.SetBlocked(ctx, "x", 31, true)

	s, err := f.ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{
		TotalBookings: 3, PendingBookings: 1, ApprovedBookings: 1, CancelledBookings: 1,
		RevenueCents: 4000, PendingRevenueCents: 4000,
		SeatsTotal: 31, SeatsAvailable: 28, SeatsOccupied: 2, SeatsBlocked: 1,
		ApprovedOccupied: 1, PendingOccupied: 1,
	}
	if s != want {
		t.Fatalf("stats = %+v\nwant   %+v", s, want)
	}
}
