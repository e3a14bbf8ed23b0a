package service

import "github.com/iliyamo/bus-seat-admin/internal/model"

// Stats are the dashboard aggregates.  Revenue counts approved
// bookings; pending revenue counts bookings awaiting approval.
type Stats struct {
	TotalBookings       int   `json:"total_bookings"`
	PendingBookings     int   `json:"pending_bookings"`
	ApprovedBookings    int   `json:"approved_bookings"`
	CancelledBookings   int   `json:"cancelled_bookings"`
	RevenueCents        int64 `json:"revenue_cents"`
	PendingRevenueCents int64 `json:"pending_revenue_cents"`
	PaidBookings        int   `json:"paid_bookings"`
	SeatsTotal          int   `json:"seats_total"`
	SeatsAvailable      int   `json:"seats_available"`
	SeatsOccupied       int   `json:"seats_occupied"`
	SeatsBlocked        int   `json:"seats_blocked"`
	ApprovedOccupied    int   `json:"approved_occupied"`
	PendingOccupied     int   `json:"pending_occupied"`
}

// ComputeStats is a pure function of the two collections.
func ComputeStats(bookings []model.Booking, seats []model.Seat) Stats {
	var s Stats
	byID := make(map[string]model.BookingStatus, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b.Status
		s.TotalBookings++
		switch b.Status {
		case model.BookingPending:
			s.PendingBookings++
			s.PendingRevenueCents += b.AmountCents
		case model.BookingApproved:
			s.ApprovedBookings++
			s.RevenueCents += b.AmountCents
		case model.BookingCancelled:
			s.CancelledBookings++
		}
		if b.PaymentStatus == model.PaymentCompleted {
			s.PaidBookings++
		}
	}
	for _, seat := range seats {
		s.SeatsTotal++
		switch seat.State {
		case model.SeatAvailable:
			s.SeatsAvailable++
		case model.SeatBlocked:
			s.SeatsBlocked++
		case model.SeatOccupied:
			s.SeatsOccupied++
			if seat.BookingID == nil {
				continue
			}
			switch byID[*seat.BookingID] {
			case model.BookingApproved:
				s.ApprovedOccupied++
			case model.BookingPending:
				s.PendingOccupied++
			}
		}
	}
	return s
}
