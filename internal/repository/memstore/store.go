// Package memstore is an in-process repository.Store used for local
// development and tests.  A single mutex serialises every transaction,
// and a failed transaction restores the snapshot taken when it began.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

type tokenRow struct {
	adminID   string
	expiresAt time.Time
	revokedAt *time.Time
}

type state struct {
	seats        map[int]model.Seat
	bookings     map[string]model.Booking
	pickups      map[string]model.PickupPoint
	destinations map[string]model.Destination
	activities   []model.Activity
	admins       map[string]model.Admin
	tokens       map[string]tokenRow
}

func newState() *state {
	return &state{
		seats:        map[int]model.Seat{},
		bookings:     map[string]model.Booking{},
		pickups:      map[string]model.PickupPoint{},
		destinations: map[string]model.Destination{},
		admins:       map[string]model.Admin{},
		tokens:       map[string]tokenRow{},
	}
}

func (s *state) clone() *state {
	return &state{
		seats:        maps.Clone(s.seats),
		bookings:     maps.Clone(s.bookings),
		pickups:      maps.Clone(s.pickups),
		destinations: maps.Clone(s.destinations),
		activities:   slices.Clone(s.activities),
		admins:       maps.Clone(s.admins),
		tokens:       maps.Clone(s.tokens),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store { return &Store{st: newState()} }

// repos binds repository views to the store.  inTx is set when the
// caller already holds s.mu.
type repos struct {
	s    *Store
	inTx bool
}

func (r repos) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (s *Store) Seats() repository.SeatRepo { return seatRepo{repos{s: s}} }
func (s *Store) Bookings() repository.BookingRepo { return bookingRepo{repos{s: s}} }
func (s *Store) PickupPoints() repository.PickupPointRepo { return pickupRepo{repos{s: s}} }
func (s *Store) Destinations() repository.DestinationRepo { return destinationRepo{repos{s: s}} }
func (s *Store) Activities() repository.ActivityRepo { return activityRepo{repos{s: s}} }
func (s *Store) Admins() repository.AdminRepo { return adminRepo{repos{s: s}} }
func (s *Store) Tokens() repository.TokenRepo { return tokenRepo{repos{s: s}} }

type txRepos struct{ r repos }

func (t txRepos) Seats() repository.SeatRepo { return seatRepo{t.r} }
func (t txRepos) Bookings() repository.BookingRepo { return bookingRepo{t.r} }
func (t txRepos) PickupPoints() repository.PickupPointRepo { return pickupRepo{t.r} }
func (t txRepos) Destinations() repository.DestinationRepo { return destinationRepo{t.r} }
func (t txRepos) Activities() repository.ActivityRepo { return activityRepo{t.r} }
func (t txRepos) Admins() repository.AdminRepo { return adminRepo{t.r} }
func (t txRepos) Tokens() repository.TokenRepo { return tokenRepo{t.r} }

// WithTx runs fn while holding the store lock.  Changes made by fn are
// discarded when it returns an error or panics.  fn must only use the
// repositories it is given; calling the store directly would deadlock.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()
	if err := fn(txRepos{r: repos{s: s, inTx: true}}); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
