package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// BookingRepo provides methods to work with the bookings table.
type BookingRepo struct {
	conn
}

const bookingColumns = `id, full_name, passenger_class, email, phone,
	contact_person_name, contact_person_phone,
	pickup_point_id, pickup_point_name, destination_id, destination_name,
	bus_type, referral, departure_date, seat_number, amount_cents,
	status, payment_status, payment_ref, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b   model.Booking
		ref sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.FullName, &b.Class, &b.Email, &b.Phone,
		&b.ContactPersonName, &b.ContactPersonPhone,
		&b.PickupPointID, &b.PickupPointName, &b.DestinationID, &b.DestinationName,
		&b.BusType, &b.Referral, &b.DepartureDate, &b.SeatNumber, &b.AmountCents,
		&b.Status, &b.PaymentStatus, &ref, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if ref.Valid {
		s := ref.String
		b.PaymentRef = &s
	}
	b.DepartureDate = dateOnly(b.DepartureDate)
	return b, nil
}

// dateOnly normalises a DATE column to UTC midnight regardless of the
// location the driver attached.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Insert creates a booking row.
func (r *BookingRepo) Insert(ctx context.Context, b model.Booking) error {
	_, err := r.exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.FullName, b.Class, b.Email, b.Phone,
		b.ContactPersonName, b.ContactPersonPhone,
		b.PickupPointID, b.PickupPointName, b.DestinationID, b.DestinationName,
		b.BusType, b.Referral, dateOnly(b.DepartureDate), b.SeatNumber, b.AmountCents,
		string(b.Status), string(b.PaymentStatus), b.PaymentRef, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

// Get fetches a booking by id.
func (r *BookingRepo) Get(ctx context.Context, id string) (model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// GetForUpdate fetches a booking by id and locks the row until the
// surrounding transaction ends.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
}

func (r *BookingRepo) get(ctx context.Context, q, id string) (model.Booking, error) {
	b, err := scanBooking(r.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, err
}

// UpdateStatus performs a guarded status transition.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, now time.Time) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now, id, string(from))
	if err != nil {
		return false, err
	}
	return affected(res)
}

// UpdatePayment records the payment outcome.
func (r *BookingRepo) UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, ref *string, now time.Time) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE bookings SET payment_status = ?, payment_ref = ?, updated_at = ? WHERE id = ?`,
		string(status), ref, now, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Delete removes a booking row.
func (r *BookingRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// List returns one page of bookings, newest first.  Ties on created_at
// are broken by id so paging is stable.
func (r *BookingRepo) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	var args []any
	if f.Status != nil {
		q += ` WHERE status = ?`
		args = append(args, string(*f.Status))
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
