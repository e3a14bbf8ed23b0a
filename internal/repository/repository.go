package repository

import (
	"context"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
)

// SeatRepo persists the fixed seat set.  Occupy and SetState are
// conditional writes: they report whether a row matched the guard so
// the caller can detect a lost race without a separate read.
type SeatRepo interface {
	// Count returns the number of seats that exist.
	Count(ctx context.Context) (int, error)
	// CreateRange inserts seats 1..capacity, all AVAILABLE.
	CreateRange(ctx context.Context, capacity int, now time.Time) error
	// Get returns one seat or ErrNotFound.
	Get(ctx context.Context, seatNumber int) (model.Seat, error)
	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, seatNumber int) (model.Seat, error)
	// List returns every seat ordered by seat number.
	List(ctx context.Context) ([]model.Seat, error)
	// Occupy sets state OCCUPIED with the booking reference only if the
	// seat is currently AVAILABLE.
	Occupy(ctx context.Context, seatNumber int, bookingID string, now time.Time) (bool, error)
	// Release sets state AVAILABLE and clears the booking reference only
	// while the seat is still in state from with booking reference
	// bookingID (nil for none).  It returns false when nothing matched.
	Release(ctx context.Context, seatNumber int, from model.SeatState, bookingID *string, now time.Time) (bool, error)
	// SetState moves a seat from one of the given states to state.  Used
	// for blocking and unblocking; never touches OCCUPIED seats unless
	// the caller lists OCCUPIED in from.
	SetState(ctx context.Context, seatNumber int, from []model.SeatState, to model.SeatState, now time.Time) (bool, error)
}

// BookingFilter selects a page of bookings.  A nil Status matches all.
type BookingFilter struct {
	Status *model.BookingStatus
	Limit  int
	Offset int
}

// BookingRepo persists bookings.
type BookingRepo interface {
	Insert(ctx context.Context, b model.Booking) error
	// Get returns one booking or ErrNotFound.
	Get(ctx context.Context, id string) (model.Booking, error)
	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (model.Booking, error)
	// UpdateStatus moves a booking from status from to status to.  It
	// returns false when the booking does not exist or is not in from.
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error)
	// UpdatePayment sets the payment status and reference.
	UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, ref *string, now time.Time) (bool, error)
	// Delete removes a booking and reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// List returns bookings newest first.
	List(ctx context.Context, f BookingFilter) ([]model.Booking, error)
}

// PickupPointRepo persists pickup points.
type PickupPointRepo interface {
	Insert(ctx context.Context, p model.PickupPoint) error
	Get(ctx context.Context, id string) (model.PickupPoint, error)
	// FindActiveByName matches case-insensitively among active rows.
	FindActiveByName(ctx context.Context, name string) (model.PickupPoint, error)
	Update(ctx context.Context, p model.PickupPoint) error
	List(ctx context.Context, includeInactive bool) ([]model.PickupPoint, error)
}

// DestinationRepo persists destinations and their fares.
type DestinationRepo interface {
	Insert(ctx context.Context, d model.Destination) error
	Get(ctx context.Context, id string) (model.Destination, error)
	FindActiveByName(ctx context.Context, name string) (model.Destination, error)
	Update(ctx context.Context, d model.Destination) error
	List(ctx context.Context, includeInactive bool) ([]model.Destination, error)
}

// ActivityRepo is the append-only audit log.
type ActivityRepo interface {
	Insert(ctx context.Context, a model.Activity) error
	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]model.Activity, error)
}

// AdminRepo persists administrator accounts.
type AdminRepo interface {
	// Create returns ErrDuplicate when the email is taken.
	Create(ctx context.Context, a model.Admin) error
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
	GetByID(ctx context.Context, id string) (model.Admin, error)
}

// TokenRepo persists refresh token hashes.
type TokenRepo interface {
	StoreRefresh(ctx context.Context, adminID, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the admin id for a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForAdmin(ctx context.Context, adminID string, now time.Time) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Seats() SeatRepo
	Bookings() BookingRepo
	PickupPoints() PickupPointRepo
	Destinations() DestinationRepo
	Activities() ActivityRepo
	Admins() AdminRepo
	Tokens() TokenRepo
}

// Store is the persistence boundary.  Repositories returned directly by
// the store run outside any transaction; WithTx runs fn inside one and
// commits only when fn returns nil.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(tx Repos) error) error
	Ping(ctx context.Context) error
	Close() error
}
