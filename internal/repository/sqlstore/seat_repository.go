package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// SeatRepo provides methods to work with the seats table.
type SeatRepo struct {
	conn
}

const seatColumns = `seat_number, state, booking_id, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (model.Seat, error) {
	var (
		s   model.Seat
		ref sql.NullString
	)
	if err := row.Scan(&s.SeatNumber, &s.State, &ref, &s.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	if ref.Valid {
		id := ref.String
		s.BookingID = &id
	}
	return s, nil
}

// Count returns how many seats exist.
func (r *SeatRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM seats`).Scan(&n)
	return n, err
}

// CreateRange inserts seats 1..capacity in a single statement.
func (r *SeatRepo) CreateRange(ctx context.Context, capacity int, now time.Time) error {
	if capacity <= 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (seat_number, state, booking_id, updated_at) VALUES `)
	args := make([]any, 0, capacity*3)
	for n := 1; n <= capacity; n++ {
		if n > 1 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, NULL, ?)")
		args = append(args, n, string(model.SeatAvailable), now)
	}
	_, err := r.exec(ctx, b.String(), args...)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

// Get retrieves a seat by number.
func (r *SeatRepo) Get(ctx context.Context, seatNumber int) (model.Seat, error) {
	s, err := scanSeat(r.queryRow(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE seat_number = ?`, seatNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, repository.ErrNotFound
	}
	return s, err
}

// GetForUpdate retrieves a seat by number and locks the row until the
// surrounding transaction ends.
func (r *SeatRepo) GetForUpdate(ctx context.Context, seatNumber int) (model.Seat, error) {
	s, err := scanSeat(r.queryRow(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE seat_number = ? FOR UPDATE`, seatNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, repository.ErrNotFound
	}
	return s, err
}

// List returns every seat ordered by number.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.query(ctx, `SELECT `+seatColumns+` FROM seats ORDER BY seat_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Occupy assigns the seat to bookingID if it is still AVAILABLE.  The
// guard in the WHERE clause makes the check and the write one atomic
// statement.
func (r *SeatRepo) Occupy(ctx context.Context, seatNumber int, bookingID string, now time.Time) (bool, error) {
	res, err := r.exec(ctx,
		`UPDATE seats SET state = ?, booking_id = ?, updated_at = ?
		 WHERE seat_number = ? AND state = ?`,
		string(model.SeatOccupied), bookingID, now, seatNumber, string(model.SeatAvailable))
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Release makes the seat AVAILABLE and clears its booking reference.
// The update only matches while the row still has the state and booking
// reference the caller read, so a seat re-occupied in between is left
// untouched.
func (r *SeatRepo) Release(ctx context.Context, seatNumber int, from model.SeatState, bookingID *string, now time.Time) (bool, error) {
	q := `UPDATE seats SET state = ?, booking_id = NULL, updated_at = ?
		 WHERE seat_number = ? AND state = ? AND booking_id IS NULL`
	args := []any{string(model.SeatAvailable), now, seatNumber, string(from)}
	if bookingID != nil {
		q = `UPDATE seats SET state = ?, booking_id = NULL, updated_at = ?
		 WHERE seat_number = ? AND state = ? AND booking_id = ?`
		args = append(args, *bookingID)
	}
	res, err := r.exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetState moves a seat to state `to` when its current state is one of from.
func (r *SeatRepo) SetState(ctx context.Context, seatNumber int, from []model.SeatState, to model.SeatState, now time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := []any{string(to), now, seatNumber}
	marks := make([]string, len(from))
	for i, st := range from {
		marks[i] = "?"
		args = append(args, string(st))
	}
	q := `UPDATE seats SET state = ?, updated_at = ? WHERE seat_number = ? AND state IN (` +
		strings.Join(marks, ", ") + `)`
	if to != model.SeatOccupied {
		q = `UPDATE seats SET state = ?, booking_id = NULL, updated_at = ? WHERE seat_number = ? AND state IN (` +
			strings.Join(marks, ", ") + `)`
	}
	res, err := r.exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}
