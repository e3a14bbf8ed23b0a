package memstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

type seatRepo struct{ repos }

func (r seatRepo) Count(ctx context.Context) (int, error) {
	defer r.lock()()
	return len(r.s.st.seats), nil
}

func (r seatRepo) CreateRange(ctx context.Context, capacity int, now time.Time) error {
	defer r.lock()()
	for n := 1; n <= capacity; n++ {
		if _, ok := r.s.st.seats[n]; ok {
			return repository.ErrDuplicate
		}
	}
	for n := 1; n <= capacity; n++ {
		r.s.st.seats[n] = model.Seat{SeatNumber: n, State: model.SeatAvailable, UpdatedAt: now}
	}
	return nil
}

func (r seatRepo) Get(ctx context.Context, seatNumber int) (model.Seat, error) {
	defer r.lock()()
	s, ok := r.s.st.seats[seatNumber]
	if !ok {
		return model.Seat{}, repository.ErrNotFound
	}
	return s, nil
}

// GetForUpdate needs no extra locking: transactions are already serial.
func (r seatRepo) GetForUpdate(ctx context.Context, seatNumber int) (model.Seat, error) {
	return r.Get(ctx, seatNumber)
}

func (r seatRepo) List(ctx context.Context) ([]model.Seat, error) {
	defer r.lock()()
	out := make([]model.Seat, 0, len(r.s.st.seats))
	for _, s := range r.s.st.seats {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b model.Seat) int { return cmp.Compare(a.SeatNumber, b.SeatNumber) })
	return out, nil
}

func (r seatRepo) Occupy(ctx context.Context, seatNumber int, bookingID string, now time.Time) (bool, error) {
	defer r.lock()()
	s, ok := r.s.st.seats[seatNumber]
	if !ok || s.State != model.SeatAvailable {
		return false, nil
	}
	id := bookingID
	s.State, s.BookingID, s.UpdatedAt = model.SeatOccupied, &id, now
	r.s.st.seats[seatNumber] = s
	return true, nil
}

func (r seatRepo) Release(ctx context.Context, seatNumber int, from model.SeatState, bookingID *string, now time.Time) (bool, error) {
	defer r.lock()()
	s, ok := r.s.st.seats[seatNumber]
	if !ok || s.State != from || !sameRef(s.BookingID, bookingID) {
		return false, nil
	}
	s.State, s.BookingID, s.UpdatedAt = model.SeatAvailable, nil, now
	r.s.st.seats[seatNumber] = s
	return true, nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r seatRepo) SetState(ctx context.Context, seatNumber int, from []model.SeatState, to model.SeatState, now time.Time) (bool, error) {
	defer r.lock()()
	s, ok := r.s.st.seats[seatNumber]
	if !ok || !slices.Contains(from, s.State) {
		return false, nil
	}
	s.State, s.UpdatedAt = to, now
	if to != model.SeatOccupied {
		s.BookingID = nil
	}
	r.s.st.seats[seatNumber] = s
	return true, nil
}

type bookingRepo struct{ repos }

func (r bookingRepo) Insert(ctx context.Context, b model.Booking) error {
	defer r.lock()()
	if _, ok := r.s.st.bookings[b.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.st.bookings[b.ID] = b
	return nil
}

func (r bookingRepo) Get(ctx context.Context, id string) (model.Booking, error) {
	defer r.lock()()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

// GetForUpdate needs no extra locking: transactions are already serial.
func (r bookingRepo) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return r.Get(ctx, id)
}

func (r bookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error) {
	defer r.lock()()
	b, ok := r.s.st.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status, b.UpdatedAt = to, now
	r.s.st.bookings[id] = b
	return true, nil
}

func (r bookingRepo) UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, ref *string, now time.Time) (bool, error) {
	defer r.lock()()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return false, nil
	}
	b.PaymentStatus, b.PaymentRef, b.UpdatedAt = status, ref, now
	r.s.st.bookings[id] = b
	return true, nil
}

func (r bookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	defer r.lock()()
	if _, ok := r.s.st.bookings[id]; !ok {
		return false, nil
	}
	delete(r.s.st.bookings, id)
	return true, nil
}

func (r bookingRepo) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	defer r.lock()()
	out := make([]model.Booking, 0, len(r.s.st.bookings))
	for _, b := range r.s.st.bookings {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

type pickupRepo struct{ repos }

func (r pickupRepo) Insert(ctx context.Context, p model.PickupPoint) error {
	defer r.lock()()
	if _, ok := r.s.st.pickups[p.ID]; ok || r.activeNameTaken(p) {
		return repository.ErrDuplicate
	}
	r.s.st.pickups[p.ID] = p
	return nil
}

func (r pickupRepo) Get(ctx context.Context, id string) (model.PickupPoint, error) {
	defer r.lock()()
	p, ok := r.s.st.pickups[id]
	if !ok {
		return model.PickupPoint{}, repository.ErrNotFound
	}
	return p, nil
}

func (r pickupRepo) FindActiveByName(ctx context.Context, name string) (model.PickupPoint, error) {
	defer r.lock()()
	for _, p := range r.s.st.pickups {
		if p.Active && sameName(p.Name, name) {
			return p, nil
		}
	}
	return model.PickupPoint{}, repository.ErrNotFound
}

func (r pickupRepo) Update(ctx context.Context, p model.PickupPoint) error {
	defer r.lock()()
	if _, ok := r.s.st.pickups[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.activeNameTaken(p) {
		return repository.ErrDuplicate
	}
	r.s.st.pickups[p.ID] = p
	return nil
}

// activeNameTaken mirrors the SQL unique index on active names.  The
// caller holds the lock.
func (r pickupRepo) activeNameTaken(p model.PickupPoint) bool {
	if !p.Active {
		return false
	}
	for _, o := range r.s.st.pickups {
		if o.ID != p.ID && o.Active && sameName(o.Name, p.Name) {
			return true
		}
	}
	return false
}

func (r pickupRepo) List(ctx context.Context, includeInactive bool) ([]model.PickupPoint, error) {
	defer r.lock()()
	var out []model.PickupPoint
	for _, p := range r.s.st.pickups {
		if p.Active || includeInactive {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.PickupPoint) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

type destinationRepo struct{ repos }

func (r destinationRepo) Insert(ctx context.Context, d model.Destination) error {
	defer r.lock()()
	if _, ok := r.s.st.destinations[d.ID]; ok || r.activeNameTaken(d) {
		return repository.ErrDuplicate
	}
	r.s.st.destinations[d.ID] = d
	return nil
}

func (r destinationRepo) Get(ctx context.Context, id string) (model.Destination, error) {
	defer r.lock()()
	d, ok := r.s.st.destinations[id]
	if !ok {
		return model.Destination{}, repository.ErrNotFound
	}
	return d, nil
}

func (r destinationRepo) FindActiveByName(ctx context.Context, name string) (model.Destination, error) {
	defer r.lock()()
	for _, d := range r.s.st.destinations {
		if d.Active && sameName(d.Name, name) {
			return d, nil
		}
	}
	return model.Destination{}, repository.ErrNotFound
}

func (r destinationRepo) Update(ctx context.Context, d model.Destination) error {
	defer r.lock()()
	if _, ok := r.s.st.destinations[d.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.activeNameTaken(d) {
		return repository.ErrDuplicate
	}
	r.s.st.destinations[d.ID] = d
	return nil
}

// activeNameTaken mirrors the SQL unique index on active names.  The
// caller holds the lock.
func (r destinationRepo) activeNameTaken(d model.Destination) bool {
	if !d.Active {
		return false
	}
	for _, o := range r.s.st.destinations {
		if o.ID != d.ID && o.Active && sameName(o.Name, d.Name) {
			return true
		}
	}
	return false
}

func (r destinationRepo) List(ctx context.Context, includeInactive bool) ([]model.Destination, error) {
	defer r.lock()()
	var out []model.Destination
	for _, d := range r.s.st.destinations {
		if d.Active || includeInactive {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b model.Destination) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

type activityRepo struct{ repos }

func (r activityRepo) Insert(ctx context.Context, a model.Activity) error {
	defer r.lock()()
	r.s.st.activities = append(r.s.st.activities, a)
	return nil
}

func (r activityRepo) List(ctx context.Context, limit, offset int) ([]model.Activity, error) {
	defer r.lock()()
	out := slices.Clone(r.s.st.activities)
	slices.SortStableFunc(out, func(a, b model.Activity) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return page(out, limit, offset), nil
}

type adminRepo struct{ repos }

func (r adminRepo) Create(ctx context.Context, a model.Admin) error {
	defer r.lock()()
	for _, existing := range r.s.st.admins {
		if sameName(existing.Email, a.Email) {
			return repository.ErrDuplicate
		}
	}
	r.s.st.admins[a.ID] = a
	return nil
}

func (r adminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	defer r.lock()()
	for _, a := range r.s.st.admins {
		if sameName(a.Email, email) {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (r adminRepo) GetByID(ctx context.Context, id string) (model.Admin, error) {
	defer r.lock()()
	a, ok := r.s.st.admins[id]
	if !ok {
		return model.Admin{}, repository.ErrNotFound
	}
	return a, nil
}

type tokenRepo struct{ repos }

func (r tokenRepo) StoreRefresh(ctx context.Context, adminID, tokenHash string, exp time.Time) error {
	defer r.lock()()
	if _, ok := r.s.st.tokens[tokenHash]; ok {
		return repository.ErrDuplicate
	}
	r.s.st.tokens[tokenHash] = tokenRow{adminID: adminID, expiresAt: exp}
	return nil
}

func (r tokenRepo) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	defer r.lock()()
	t, ok := r.s.st.tokens[tokenHash]
	if !ok || t.revokedAt != nil || !now.Before(t.expiresAt) {
		return "", repository.ErrNotFound
	}
	return t.adminID, nil
}

func (r tokenRepo) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	defer r.lock()()
	t, ok := r.s.st.tokens[tokenHash]
	if ok && t.revokedAt == nil {
		at := now
		t.revokedAt = &at
		r.s.st.tokens[tokenHash] = t
	}
	return nil
}

func (r tokenRepo) RevokeAllForAdmin(ctx context.Context, adminID string, now time.Time) error {
	defer r.lock()()
	for h, t := range r.s.st.tokens {
		if t.adminID == adminID && t.revokedAt == nil {
			at := now
			t.revokedAt = &at
			r.s.st.tokens[h] = t
		}
	}
	return nil
}
