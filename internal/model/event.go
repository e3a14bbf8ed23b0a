package model

import "time"

// EventType names a booking lifecycle event published to the broker.
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingApproved  EventType = "booking.approved"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingDeleted   EventType = "booking.deleted"
	EventPaymentCompleted EventType = "booking.payment_completed"
)

// BookingEvent carries enough information for downstream consumers to
// notify or log without querying the database.
type BookingEvent struct {
	Type            EventType     `json:"type"`
	BookingID       string        `json:"booking_id"`
	FullName        string        `json:"full_name"`
	Email           string        `json:"email"`
	SeatNumber      int           `json:"seat_number"`
	DestinationName string        `json:"destination_name"`
	DepartureDate   string        `json:"departure_date"`
	AmountCents     int64         `json:"amount_cents"`
	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

// NewBookingEvent builds an event from the booking's current state.
func NewBookingEvent(t EventType, b Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            t,
		BookingID:       b.ID,
		FullName:        b.FullName,
		Email:           b.Email,
		SeatNumber:      b.SeatNumber,
		DestinationName: b.DestinationName,
		DepartureDate:   b.DepartureDate.Format(time.DateOnly),
		AmountCents:     b.AmountCents,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		OccurredAt:      at.UTC(),
	}
}

// PaymentOutcome is the result reported by the payment provider.
type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "success"
	PaymentFailed    PaymentOutcome = "failed"
	PaymentCancelled PaymentOutcome = "cancelled"
)

// PaymentResult is delivered by the payment webhook or the payment
// event queue.
type PaymentResult struct {
	BookingID string         `json:"booking_id"`
	Reference string         `json:"reference"`
	Outcome   PaymentOutcome `json:"outcome"`
}
