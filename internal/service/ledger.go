package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// EventPublisher receives booking lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.BookingEvent) error
}

// DefaultPageSize is how many bookings List fetches per round trip.
const DefaultPageSize = 100

// CreateBookingRequest is the passenger input for a new booking.
// DepartureDate is YYYY-MM-DD.  AmountCents may be left zero; when set
// it must equal the destination fare.
type CreateBookingRequest struct {
	FullName           string
	Class              string
	Email              string
	Phone              string
	ContactPersonName  string
	ContactPersonPhone string
	PickupPointID      string
	DestinationID      string
	BusType            string
	Referral           string
	DepartureDate      string
	SeatNumber         int
	AmountCents        int64
}

// BookingResult is the canonical post-state of a ledger operation.
// Seat is nil when the operation did not touch a seat.
type BookingResult struct {
	Booking model.Booking `json:"booking"`
	Seat    *model.Seat   `json:"seat,omitempty"`
}

// BookingLedger owns booking records and their lifecycle.
type BookingLedger struct {
	store    repository.Store
	seats    *SeatRegistry
	recorder *ActivityRecorder
	events   EventPublisher
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time
	pageSize int
}

// LedgerOption configures a BookingLedger.
type LedgerOption func(*BookingLedger)

// WithEventPublisher publishes lifecycle events after each commit.
func WithEventPublisher(p EventPublisher) LedgerOption {
	return func(l *BookingLedger) { l.events = p }
}

// WithLocation sets the time zone that defines "today" for departure
// date validation.
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *BookingLedger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *BookingLedger) {
		l.now = now
		l.seats.now = now
	}
}

// WithPageSize sets the List page size.
func WithPageSize(n int) LedgerOption {
	return func(l *BookingLedger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *BookingLedger) {
		if logger != nil {
			l.log = logger
		}
	}
}

// NewBookingLedger wires the ledger to its store and seat registry.
func NewBookingLedger(store repository.Store, seats *SeatRegistry, recorder *ActivityRecorder, opts ...LedgerOption) *BookingLedger {
	l := &BookingLedger{
		store:    store,
		seats:    seats,
		recorder: recorder,
		log:      slog.Default(),
		loc:      time.UTC,
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *BookingLedger) validate(req *CreateBookingRequest) (time.Time, error) {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, s := range []*string{
		&req.FullName, &req.Class, &req.Email, &req.Phone, &req.ContactPersonName,
		&req.ContactPersonPhone, &req.PickupPointID, &req.DestinationID,
		&req.BusType, &req.Referral, &req.DepartureDate,
	} {
		trim(s)
	}
	required := []struct{ field, value string }{
		{"full_name", req.FullName},
		{"class", req.Class},
		{"email", req.Email},
		{"phone", req.Phone},
		{"contact_person_name", req.ContactPersonName},
		{"contact_person_phone", req.ContactPersonPhone},
		{"pickup_point_id", req.PickupPointID},
		{"destination_id", req.DestinationID},
		{"departure_date", req.DepartureDate},
	}
	for _, f := range required {
		if f.value == "" {
			return time.Time{}, invalid(f.field, "is required")
		}
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return time.Time{}, invalid("email", "is not a valid address")
	}
	if req.SeatNumber < 1 || req.SeatNumber > l.seats.Capacity() {
		return time.Time{}, invalid("seat_number", fmt.Sprintf("must be between 1 and %d", l.seats.Capacity()))
	}
	if req.AmountCents < 0 {
		return time.Time{}, invalid("amount_cents", "must be positive")
	}
	dep, err := time.ParseInLocation(time.DateOnly, req.DepartureDate, l.loc)
	if err != nil {
		return time.Time{}, invalid("departure_date", "must be YYYY-MM-DD")
	}
	y, m, d := l.now().In(l.loc).Date()
	if dep.Before(time.Date(y, m, d, 0, 0, 0, 0, l.loc)) {
		return time.Time{}, invalid("departure_date", "must not be in the past")
	}
	return time.Date(dep.Year(), dep.Month(), dep.Day(), 0, 0, 0, 0, time.UTC), nil
}

// CreateBooking validates req and, in one transaction, inserts the
// booking and occupies its seat.  When the seat is not AVAILABLE the
// transaction rolls back and ErrSeatConflict is returned.
func (l *BookingLedger) CreateBooking(ctx context.Context, req CreateBookingRequest) (BookingResult, error) {
	dep, err := l.validate(&req)
	if err != nil {
		return BookingResult{}, err
	}
	now := l.now().UTC()
	b := model.Booking{
		ID:                 uuid.NewString(),
		FullName:           req.FullName,
		Class:              req.Class,
		Email:              strings.ToLower(req.Email),
		Phone:              req.Phone,
		ContactPersonName:  req.ContactPersonName,
		ContactPersonPhone: req.ContactPersonPhone,
		PickupPointID:      req.PickupPointID,
		DestinationID:      req.DestinationID,
		BusType:            req.BusType,
		Referral:           req.Referral,
		DepartureDate:      dep,
		SeatNumber:         req.SeatNumber,
		Status:             model.BookingPending,
		PaymentStatus:      model.PaymentPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var res BookingResult
	err = l.store.WithTx(ctx, func(tx repository.Repos) error {
		pickup, err := tx.PickupPoints().Get(ctx, b.PickupPointID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !pickup.Active) {
			return invalid("pickup_point_id", "unknown or inactive pickup point")
		}
		if err != nil {
			return err
		}
		dest, err := tx.Destinations().Get(ctx, b.DestinationID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !dest.Active) {
			return invalid("destination_id", "unknown or inactive destination")
		}
		if err != nil {
			return err
		}
		if dest.PriceCents <= 0 {
			return invalid("amount_cents", "destination has no fare")
		}
		if req.AmountCents != 0 && req.AmountCents != dest.PriceCents {
			return invalid("amount_cents", fmt.Sprintf("must equal the destination fare %d", dest.PriceCents))
		}
		b.PickupPointName = pickup.Name
		b.DestinationName = dest.Name
		b.AmountCents = dest.PriceCents

		if err := tx.Bookings().Insert(ctx, b); err != nil {
			return err
		}
		seat, err := l.seats.markOccupied(ctx, tx, b.SeatNumber, b.ID)
		if errors.Is(err, ErrSeatUnavailable) {
			return fmt.Errorf("%w: seat %d", ErrSeatConflict, b.SeatNumber)
		}
		if errors.Is(err, ErrInvalidSeat) {
			return invalid("seat_number", err.Error())
		}
		if err != nil {
			return err
		}
		res = BookingResult{Booking: b, Seat: &seat}
		return nil
	})
	if err != nil {
		return BookingResult{}, storeErr(err)
	}
	l.publish(ctx, model.EventBookingCreated, res.Booking)
	return res, nil
}

// Get returns one booking.
func (l *BookingLedger) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := l.store.Bookings().Get(ctx, id)
	if err != nil {
		return model.Booking{}, storeErr(err)
	}
	return b, nil
}

// Approve moves a PENDING booking to APPROVED.  The seat is untouched.
func (l *BookingLedger) Approve(ctx context.Context, adminID, id string) (BookingResult, error) {
	var res BookingResult
	err := l.store.WithTx(ctx, func(tx repository.Repos) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return fmt.Errorf("%w: cannot approve a %s booking", ErrInvalidTransition, b.Status)
		}
		ok, err := tx.Bookings().UpdateStatus(ctx, id, model.BookingPending, model.BookingApproved, l.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
		}
		if b, err = tx.Bookings().Get(ctx, id); err != nil {
			return err
		}
		res.Booking = b
		return nil
	})
	if err != nil {
		return BookingResult{}, storeErr(err)
	}
	b := res.Booking
	l.recorder.Record(ctx, adminID, model.ActionBookingApproved,
		fmt.Sprintf("Approved booking for %s (seat %d)", b.FullName, b.SeatNumber),
		model.Metadata{
			"booking_id":  model.String(b.ID),
			"seat_number": model.Int(int64(b.SeatNumber)),
			"from":        model.String(string(model.BookingPending)),
			"to":          model.String(string(b.Status)),
		})
	l.publish(ctx, model.EventBookingApproved, b)
	return res, nil
}

// Cancel moves a PENDING or APPROVED booking to CANCELLED and releases
// its seat in the same transaction.
func (l *BookingLedger) Cancel(ctx context.Context, adminID, id string) (BookingResult, error) {
	var (
		res    BookingResult
		before model.BookingStatus
	)
	err := l.store.WithTx(ctx, func(tx repository.Repos) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.Status.Active() {
			return fmt.Errorf("%w: booking is already %s", ErrInvalidTransition, b.Status)
		}
		before = b.Status
		ok, err := tx.Bookings().UpdateStatus(ctx, id, b.Status, model.BookingCancelled, l.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
		}
		seat, err := l.seats.releaseFor(ctx, tx, b.SeatNumber, b.ID)
		if err != nil {
			return err
		}
		if b, err = tx.Bookings().Get(ctx, id); err != nil {
			return err
		}
		res = BookingResult{Booking: b, Seat: seat}
		return nil
	})
	if err != nil {
		return BookingResult{}, storeErr(err)
	}
	b := res.Booking
	l.recorder.Record(ctx, adminID, model.ActionBookingRejected,
		fmt.Sprintf("Rejected booking for %s (seat %d)", b.FullName, b.SeatNumber),
		model.Metadata{
			"booking_id":  model.String(b.ID),
			"seat_number": model.Int(int64(b.SeatNumber)),
			"from":        model.String(string(before)),
			"to":          model.String(string(b.Status)),
		})
	l.publish(ctx, model.EventBookingCancelled, b)
	return res, nil
}

// Delete removes a booking, first releasing its seat when the booking
// still held it.
func (l *BookingLedger) Delete(ctx context.Context, adminID, id string) (BookingResult, error) {
	var res BookingResult
	err := l.store.WithTx(ctx, func(tx repository.Repos) error {
		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		var seat *model.Seat
		if b.Status.Active() {
			if seat, err = l.seats.releaseFor(ctx, tx, b.SeatNumber, b.ID); err != nil {
				return err
			}
		}
		ok, err := tx.Bookings().Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		res = BookingResult{Booking: b, Seat: seat}
		return nil
	})
	if err != nil {
		return BookingResult{}, storeErr(err)
	}
	b := res.Booking
	l.recorder.Record(ctx, adminID, model.ActionBookingDeleted,
		fmt.Sprintf("Deleted booking for %s (seat %d)", b.FullName, b.SeatNumber),
		model.Metadata{
			"booking_id":  model.String(b.ID),
			"seat_number": model.Int(int64(b.SeatNumber)),
			"status":      model.String(string(b.Status)),
			"amount":      model.Int(b.AmountCents),
		})
	l.publish(ctx, model.EventBookingDeleted, b)
	return res, nil
}

// ConfirmPayment applies a payment provider result.  Success marks the
// booking paid and stores the reference; repeating it is harmless.  A
// failed or cancelled payment leaves the booking as it is.
func (l *BookingLedger) ConfirmPayment(ctx context.Context, r model.PaymentResult) (model.Booking, error) {
	r.BookingID = strings.TrimSpace(r.BookingID)
	r.Reference = strings.TrimSpace(r.Reference)
	if r.BookingID == "" {
		return model.Booking{}, invalid("booking_id", "is required")
	}
	switch r.Outcome {
	case model.PaymentSucceeded:
	case model.PaymentFailed, model.PaymentCancelled:
		return l.Get(ctx, r.BookingID)
	default:
		return model.Booking{}, invalid("outcome", "must be success, failed or cancelled")
	}

	var (
		b       model.Booking
		changed bool
	)
	err := l.store.WithTx(ctx, func(tx repository.Repos) error {
		var err error
		b, err = tx.Bookings().GetForUpdate(ctx, r.BookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus == model.PaymentCompleted && (r.Reference == "" || (b.PaymentRef != nil && *b.PaymentRef == r.Reference)) {
			return nil
		}
		var ref *string
		if r.Reference != "" {
			ref = &r.Reference
		} else {
			ref = b.PaymentRef
		}
		if _, err := tx.Bookings().UpdatePayment(ctx, b.ID, model.PaymentCompleted, ref, l.now().UTC()); err != nil {
			return err
		}
		changed = true
		b, err = tx.Bookings().Get(ctx, b.ID)
		return err
	})
	if err != nil {
		return model.Booking{}, storeErr(err)
	}
	if changed {
		l.publish(ctx, model.EventPaymentCompleted, b)
	}
	return b, nil
}

// List returns a lazy sequence of bookings, newest first, optionally
// restricted to one status.  Pages are fetched as the sequence is
// consumed; each range over the sequence starts again from the top.
// An error ends the sequence after being yielded once.
func (l *BookingLedger) List(ctx context.Context, status *model.BookingStatus) iter.Seq2[model.Booking, error] {
	return func(yield func(model.Booking, error) bool) {
		if status != nil && !status.Valid() {
			yield(model.Booking{}, invalid("status", "unknown booking status"))
			return
		}
		offset := 0
		for {
			page, err := l.store.Bookings().List(ctx, repository.BookingFilter{
				Status: status,
				Limit:  l.pageSize,
				Offset: offset,
			})
			if err != nil {
				yield(model.Booking{}, storeErr(err))
				return
			}
			for _, b := range page {
				if !yield(b, nil) {
					return
				}
			}
			if len(page) < l.pageSize {
				return
			}
			offset += len(page)
		}
	}
}

// Collect drains a booking sequence into a slice.
func Collect(seq iter.Seq2[model.Booking, error]) ([]model.Booking, error) {
	out := []model.Booking{}
	for b, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Stats computes the dashboard aggregates from the current bookings and
// seats.
func (l *BookingLedger) Stats(ctx context.Context) (Stats, error) {
	bookings, err := Collect(l.List(ctx, nil))
	if err != nil {
		return Stats{}, err
	}
	seats, err := l.seats.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(bookings, seats), nil
}

func (l *BookingLedger) publish(ctx context.Context, t model.EventType, b model.Booking) {
	if l.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := l.events.Publish(ctx, model.NewBookingEvent(t, b, l.now())); err != nil {
		l.log.Warn("booking event not published", "type", t, "booking_id", b.ID, "err", err)
	}
}
