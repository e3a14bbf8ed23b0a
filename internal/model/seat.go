package model

import "time"

// SeatState is the occupancy state of a bus seat.
type SeatState string

const (
	SeatAvailable SeatState = "AVAILABLE"
	SeatOccupied  SeatState = "OCCUPIED"
	SeatBlocked   SeatState = "BLOCKED"
)

// Valid reports whether s is one of the known seat states.
func (s SeatState) Valid() bool {
	switch s {
	case SeatAvailable, SeatOccupied, SeatBlocked:
		return true
	}
	return false
}

// Seat describes one physical seat on the bus.  Seat numbers are
// drawn from the fixed range [1, capacity] and never change.  A seat
// carries a booking reference only while it is OCCUPIED.
//
// Fields:
//  SeatNumber – 1-based seat number, unique.
//  State      – AVAILABLE, OCCUPIED or BLOCKED.
//  BookingID  – booking holding the seat (nil unless OCCUPIED).
//  UpdatedAt  – last state change.
type Seat struct {
	SeatNumber int       `json:"seat_number"` // seats.seat_number
	State      SeatState `json:"state"`       // seats.state
	BookingID  *string   `json:"booking_id"`  // seats.booking_id (nullable)
	UpdatedAt  time.Time `json:"updated_at"`  // seats.updated_at
}

// IsAvailable reports whether the seat can be booked.
func (s Seat) IsAvailable() bool { return s.State == SeatAvailable }
