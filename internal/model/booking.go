package model

import "time"

// BookingStatus is the lifecycle state of a booking.  CANCELLED is
// terminal; APPROVED is reachable only from PENDING.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingCancelled:
		return true
	}
	return false
}

// Active reports whether a booking in this status holds its seat.
func (s BookingStatus) Active() bool { return s == BookingPending || s == BookingApproved }

// PaymentStatus tracks external payment confirmation independently of
// the booking status.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

// Booking records a passenger's seat on the bus.  The pickup point and
// destination names are copied at creation so that later renames do
// not rewrite history, and AmountCents is the destination fare at the
// moment of booking.
//
// Fields:
//  ID                 – UUID assigned at creation.
//  FullName           – passenger name.
//  Class              – passenger category (e.g. "Level 200", "Non-Student").
//  Email, Phone       – passenger contact details.
//  ContactPersonName  – emergency contact name.
//  ContactPersonPhone – emergency contact phone.
//  PickupPointID      – pickup point reference.
//  PickupPointName    – pickup point name at booking time.
//  DestinationID      – destination reference.
//  DestinationName    – destination name at booking time.
//  BusType            – requested bus type (free text, optional).
//  Referral           – who referred the passenger (optional).
//  DepartureDate      – travel date (date only, UTC midnight).
//  SeatNumber         – the seat; set once, never reassigned.
//  AmountCents        – fare in minor currency units.
//  Status             – PENDING, APPROVED or CANCELLED.
//  PaymentStatus      – PENDING or COMPLETED.
//  PaymentRef         – external payment reference, if any.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – refreshed on every mutation.
type Booking struct {
	ID                 string        `json:"id"`
	FullName           string        `json:"full_name"`
	Class              string        `json:"class"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone"`
	ContactPersonName  string        `json:"contact_person_name"`
	ContactPersonPhone string        `json:"contact_person_phone"`
	PickupPointID      string        `json:"pickup_point_id"`
	PickupPointName    string        `json:"pickup_point_name"`
	DestinationID      string        `json:"destination_id"`
	DestinationName    string        `json:"destination_name"`
	BusType            string        `json:"bus_type,omitempty"`
	Referral           string        `json:"referral,omitempty"`
	DepartureDate      time.Time     `json:"departure_date"`
	SeatNumber         int           `json:"seat_number"`
	AmountCents        int64         `json:"amount_cents"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentRef         *string       `json:"payment_ref,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
