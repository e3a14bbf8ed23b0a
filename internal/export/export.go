// Package export renders bookings and seats as CSV files and the
// passenger manifest as a PDF.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

// Kinds of export, recorded in the activity metadata.
const (
	KindBookings = "bookings"
	KindSeats    = "seats"
	KindManifest = "manifest"
)

var bookingHeader = []string{
	"id", "full_name", "class", "email", "phone",
	"contact_person_name", "contact_person_phone",
	"pickup_point", "destination", "bus_type", "referral",
	"departure_date", "seat_number", "amount", "status",
	"payment_status", "payment_ref", "created_at",
}

// Money formats minor units with two decimals.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// cell neutralises text a spreadsheet would evaluate as a formula by
// prefixing it with a single quote.
func cell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteBookingsCSV writes one header row and one row per booking.
func WriteBookingsCSV(w io.Writer, bookings []model.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bookingHeader); err != nil {
		return err
	}
	for _, b := range bookings {
		ref := ""
		if b.PaymentRef != nil {
			ref = *b.PaymentRef
		}
		row := []string{
			b.ID, cell(b.FullName), cell(b.Class), cell(b.Email), cell(b.Phone),
			cell(b.ContactPersonName), cell(b.ContactPersonPhone),
			cell(b.PickupPointName), cell(b.DestinationName), cell(b.BusType), cell(b.Referral),
			b.DepartureDate.Format(time.DateOnly), strconv.Itoa(b.SeatNumber),
			Money(b.AmountCents), string(b.Status),
			string(b.PaymentStatus), cell(ref), b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeatsCSV writes the seat map.
func WriteSeatsCSV(w io.Writer, seats []model.Seat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"seat_number", "state", "booking_id", "updated_at"}); err != nil {
		return err
	}
	for _, s := range seats {
		id := ""
		if s.BookingID != nil {
			id = *s.BookingID
		}
		if err := cw.Write([]string{
			strconv.Itoa(s.SeatNumber), string(s.State), id, s.UpdatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter produces exports from live data and records each one.
type Exporter struct {
	ledger   *service.BookingLedger
	seats    *service.SeatRegistry
	recorder *service.ActivityRecorder
	title    string
	now      func() time.Time
}

// New returns an Exporter.  Title heads the PDF manifest.
func New(ledger *service.BookingLedger, seats *service.SeatRegistry, recorder *service.ActivityRecorder, title string) *Exporter {
	if title == "" {
		title = "Passenger Manifest"
	}
	return &Exporter{ledger: ledger, seats: seats, recorder: recorder, title: title, now: time.Now}
}

// Bookings writes bookings as CSV, optionally filtered by status.
func (e *Exporter) Bookings(ctx context.Context, adminID string, status *model.BookingStatus, w io.Writer) error {
	bookings, err := service.Collect(e.ledger.List(ctx, status))
	if err != nil {
		return err
	}
	if err := WriteBookingsCSV(w, bookings); err != nil {
		return fmt.Errorf("write bookings csv: %w", err)
	}
	e.record(ctx, adminID, KindBookings, len(bookings))
	return nil
}

// Seats writes the seat map as CSV.
func (e *Exporter) Seats(ctx context.Context, adminID string, w io.Writer) error {
	seats, err := e.seats.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := WriteSeatsCSV(w, seats); err != nil {
		return fmt.Errorf("write seats csv: %w", err)
	}
	e.record(ctx, adminID, KindSeats, len(seats))
	return nil
}

// Manifest writes a PDF listing active bookings in seat order.  When
// departure is non-zero only bookings for that date are listed.
func (e *Exporter) Manifest(ctx context.Context, adminID string, departure time.Time, w io.Writer) error {
	all, err := service.Collect(e.ledger.List(ctx, nil))
	if err != nil {
		return err
	}
	rows := ManifestRows(all, departure)
	if err := WriteManifestPDF(w, e.title, departure, e.now(), rows); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	e.record(ctx, adminID, KindManifest, len(rows))
	return nil
}

func (e *Exporter) record(ctx context.Context, adminID, kind string, rows int) {
	e.recorder.Record(ctx, adminID, model.ActionDataExported,
		fmt.Sprintf("Exported %s (%d rows)", kind, rows),
		model.Metadata{
			"kind": model.String(kind),
			"rows": model.Int(int64(rows)),
			"at":   model.Time(e.now()),
		})
}
