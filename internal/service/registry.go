package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// DefaultCapacity is the seat count of the bus when none is configured.
const DefaultCapacity = 31

// SeatRegistry owns the fixed seat set and each seat's state.  The
// booking ledger drives occupancy through the tx-scoped helpers so seat
// and booking writes share one transaction.
type SeatRegistry struct {
	store    repository.Store
	recorder *ActivityRecorder
	capacity int
	now      func() time.Time
}

// NewSeatRegistry returns a registry for a bus with the given capacity.
func NewSeatRegistry(store repository.Store, recorder *ActivityRecorder, capacity int) *SeatRegistry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &SeatRegistry{store: store, recorder: recorder, capacity: capacity, now: time.Now}
}

// Capacity returns the configured seat count.
func (r *SeatRegistry) Capacity() int { return r.capacity }

func (r *SeatRegistry) checkRange(seatNumber int) error {
	if seatNumber < 1 || seatNumber > r.capacity {
		return fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidSeat, seatNumber, r.capacity)
	}
	return nil
}

// Initialize creates seats 1..capacity when none exist.  It is a no-op
// when the existing count already equals capacity and fails with
// ErrAlreadyInitialized otherwise.  A zero capacity means the
// configured one; any other value must match it.
func (r *SeatRegistry) Initialize(ctx context.Context, adminID string, capacity int) ([]model.Seat, error) {
	if capacity == 0 {
		capacity = r.capacity
	}
	if capacity != r.capacity {
		return nil, invalid("capacity", fmt.Sprintf("must equal the configured capacity %d", r.capacity))
	}
	created := false
	err := r.store.WithTx(ctx, func(tx repository.Repos) error {
		n, err := tx.Seats().Count(ctx)
		if err != nil {
			return err
		}
		switch {
		case n == 0:
			created = true
			return tx.Seats().CreateRange(ctx, capacity, r.now().UTC())
		case n != capacity:
			return fmt.Errorf("%w: have %d, requested %d", ErrAlreadyInitialized, n, capacity)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if created {
		r.recorder.Record(ctx, adminID, model.ActionSeatsInitialized,
			fmt.Sprintf("Initialized %d seats", capacity),
			model.Metadata{"capacity": model.Int(int64(capacity))})
	}
	return r.Snapshot(ctx)
}

// Snapshot returns every seat ordered by seat number.
func (r *SeatRegistry) Snapshot(ctx context.Context) ([]model.Seat, error) {
	seats, err := r.store.Seats().List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return seats, nil
}

// Get returns one seat.
func (r *SeatRegistry) Get(ctx context.Context, seatNumber int) (model.Seat, error) {
	if err := r.checkRange(seatNumber); err != nil {
		return model.Seat{}, err
	}
	s, err := r.store.Seats().Get(ctx, seatNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Seat{}, fmt.Errorf("%w: seat %d does not exist", ErrInvalidSeat, seatNumber)
		}
		return model.Seat{}, storeErr(err)
	}
	return s, nil
}

// MarkOccupied assigns an AVAILABLE seat to bookingID.
func (r *SeatRegistry) MarkOccupied(ctx context.Context, seatNumber int, bookingID string) (model.Seat, error) {
	var seat model.Seat
	err := r.store.WithTx(ctx, func(tx repository.Repos) error {
		var err error
		seat, err = r.markOccupied(ctx, tx, seatNumber, bookingID)
		return err
	})
	return seat, storeErr(err)
}

// markOccupied is the conditional write behind seat reservation: the
// state guard and the update are one statement, so of several
// concurrent callers only one can match the AVAILABLE row.
func (r *SeatRegistry) markOccupied(ctx context.Context, tx repository.Repos, seatNumber int, bookingID string) (model.Seat, error) {
	if err := r.checkRange(seatNumber); err != nil {
		return model.Seat{}, err
	}
	ok, err := tx.Seats().Occupy(ctx, seatNumber, bookingID, r.now().UTC())
	if err != nil {
		return model.Seat{}, err
	}
	if !ok {
		if _, err := tx.Seats().Get(ctx, seatNumber); errors.Is(err, repository.ErrNotFound) {
			return model.Seat{}, fmt.Errorf("%w: seat %d does not exist", ErrInvalidSeat, seatNumber)
		}
		return model.Seat{}, fmt.Errorf("%w: seat %d", ErrSeatUnavailable, seatNumber)
	}
	return tx.Seats().Get(ctx, seatNumber)
}

// Release makes a seat AVAILABLE.  Releasing an AVAILABLE seat is a
// no-op.
func (r *SeatRegistry) Release(ctx context.Context, seatNumber int) (model.Seat, error) {
	var seat model.Seat
	err := r.store.WithTx(ctx, func(tx repository.Repos) error {
		var err error
		seat, _, err = r.release(ctx, tx, seatNumber)
		return err
	})
	return seat, storeErr(err)
}

// release frees seatNumber under a row lock.  The write is also guarded
// on the state and booking reference just read; a miss means another
// writer got in and is reported as ErrSeatConflict.
func (r *SeatRegistry) release(ctx context.Context, tx repository.Repos, seatNumber int) (model.Seat, bool, error) {
	seat, err := tx.Seats().GetForUpdate(ctx, seatNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Seat{}, false, fmt.Errorf("%w: seat %d does not exist", ErrInvalidSeat, seatNumber)
	}
	if err != nil {
		return model.Seat{}, false, err
	}
	if seat.State == model.SeatAvailable {
		return seat, false, nil
	}
	ok, err := tx.Seats().Release(ctx, seatNumber, seat.State, seat.BookingID, r.now().UTC())
	if err != nil {
		return model.Seat{}, false, err
	}
	if !ok {
		return model.Seat{}, false, fmt.Errorf("%w: seat %d changed concurrently", ErrSeatConflict, seatNumber)
	}
	seat, err = tx.Seats().Get(ctx, seatNumber)
	return seat, true, err
}

// releaseFor frees the seat held by bookingID.  A seat that is missing
// or already held by a different booking is left alone and reported as
// nil.
func (r *SeatRegistry) releaseFor(ctx context.Context, tx repository.Repos, seatNumber int, bookingID string) (*model.Seat, error) {
	seat, err := tx.Seats().GetForUpdate(ctx, seatNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if seat.State == model.SeatOccupied && seat.BookingID != nil && *seat.BookingID != bookingID {
		return &seat, nil
	}
	seat, _, err = r.release(ctx, tx, seatNumber)
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// AdminRelease frees a seat whose occupancy has been orphaned.  It
// refuses with ErrSeatOccupied while the referencing booking is still
// active: such a seat must be freed by rejecting or deleting the
// booking.
func (r *SeatRegistry) AdminRelease(ctx context.Context, adminID string, seatNumber int) (model.Seat, error) {
	if err := r.checkRange(seatNumber); err != nil {
		return model.Seat{}, err
	}
	var (
		seat    model.Seat
		before  model.SeatState
		changed bool
	)
	err := r.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.Seats().GetForUpdate(ctx, seatNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: seat %d does not exist", ErrInvalidSeat, seatNumber)
		}
		if err != nil {
			return err
		}
		before = cur.State
		if cur.State == model.SeatOccupied && cur.BookingID != nil {
			b, err := tx.Bookings().Get(ctx, *cur.BookingID)
			switch {
			case err == nil && b.Status.Active():
				return fmt.Errorf("%w: booking %s", ErrSeatOccupied, b.ID)
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return err
			}
		}
		seat, changed, err = r.release(ctx, tx, seatNumber)
		return err
	})
	if err != nil {
		return model.Seat{}, storeErr(err)
	}
	if changed {
		r.recorder.Record(ctx, adminID, model.ActionSeatReleased,
			fmt.Sprintf("Released seat %d", seatNumber),
			model.Metadata{
				"seat_number": model.Int(int64(seatNumber)),
				"from":        model.String(string(before)),
				"to":          model.String(string(seat.State)),
			})
	}
	return seat, nil
}

// SetBlocked blocks or unblocks a seat.  Blocking an OCCUPIED seat
// fails with ErrSeatOccupied.  Blocking a BLOCKED seat and unblocking a
// seat that is not BLOCKED are no-ops.
func (r *SeatRegistry) SetBlocked(ctx context.Context, adminID string, seatNumber int, blocked bool) (model.Seat, error) {
	if err := r.checkRange(seatNumber); err != nil {
		return model.Seat{}, err
	}
	var (
		seat    model.Seat
		before  model.SeatState
		changed bool
	)
	err := r.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.Seats().GetForUpdate(ctx, seatNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: seat %d does not exist", ErrInvalidSeat, seatNumber)
		}
		if err != nil {
			return err
		}
		before, seat = cur.State, cur

		from, to := model.SeatBlocked, model.SeatAvailable
		if blocked {
			if cur.State == model.SeatOccupied {
				return fmt.Errorf("%w: seat %d", ErrSeatOccupied, seatNumber)
			}
			from, to = model.SeatAvailable, model.SeatBlocked
		}
		if cur.State != from {
			return nil
		}
		ok, err := tx.Seats().SetState(ctx, seatNumber, []model.SeatState{from}, to, r.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: seat %d changed concurrently", ErrSeatOccupied, seatNumber)
		}
		changed = true
		seat, err = tx.Seats().Get(ctx, seatNumber)
		return err
	})
	if err != nil {
		return model.Seat{}, storeErr(err)
	}
	if changed {
		verb := "Unblocked"
		if blocked {
			verb = "Blocked"
		}
		r.recorder.Record(ctx, adminID, model.ActionSeatToggled,
			fmt.Sprintf("%s seat %d", verb, seatNumber),
			model.Metadata{
				"seat_number": model.Int(int64(seatNumber)),
				"from":        model.String(string(before)),
				"to":          model.String(string(seat.State)),
			})
	}
	return seat, nil
}
