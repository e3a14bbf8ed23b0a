package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository/memstore"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

func TestMoney(t *testing.T) {
	for cents, want := range map[int64]string{0: "0.00", 4000: "40.00", 7005: "70.05", -150: "-1.50"} {
		if got := Money(cents); got != want {
			t.Errorf("Money(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestWriteBookingsCSV(t *testing.T) {
	ref := "PSK-9"
	bookings := []model.Booking{{
		ID: "b1", FullName: "Ama, Mensah", Class: "Level 200", Email: "ama@example.com",
		PickupPointName: "Apowa", DestinationName: "Accra",
		DepartureDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		SeatNumber:    5, AmountCents: 4000, Status: model.BookingApproved,
		PaymentStatus: model.PaymentCompleted, PaymentRef: &ref,
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
	var buf bytes.Buffer
	if err := WriteBookingsCSV(&buf, bookings); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 2 || len(records[1]) != len(bookingHeader) {
		t.Fatalf("records = %v", records)
	}
	row := records[1]
	if row[1] != "Ama, Mensah" || row[11] != "2025-03-10" || row[12] != "5" || row[13] != "40.00" || row[16] != "PSK-9" {
		t.Fatalf("row = %v", row)
	}
}

func TestWriteBookingsCSVEscapesFormulas(t *testing.T) {
	bookings := []model.Booking{{
		ID: "b2", FullName: `=HYPERLINK("http://evil.example","open")`, Class: "Level 100",
		Email: "@SUM(A1:A9)", Phone: "+233240000000", ContactPersonName: "-2+3",
		DepartureDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		SeatNumber:    7, AmountCents: 4000, Status: model.BookingPending,
	}}
	var buf bytes.Buffer
	if err := WriteBookingsCSV(&buf, bookings); err != nil {
		t.Fatalf("write: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	row := records[1]
	want := map[int]string{
		1: `'=HYPERLINK("http://evil.example","open")`,
		2: "Level 100",
		3: "'@SUM(A1:A9)",
		4: "'+233240000000",
		5: "'-2+3",
	}
	for i, v := range want {
		if row[i] != v {
			t.Errorf("column %s = %q, want %q", bookingHeader[i], row[i], v)
		}
	}
}

func TestManifestRows(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	other := day.AddDate(0, 0, 1)
	bookings := []model.Booking{
		{ID: "c", SeatNumber: 9, Status: model.BookingPending, DepartureDate: day},
		{ID: "x", SeatNumber: 2, Status: model.BookingCancelled, DepartureDate: day},
		{ID: "a", SeatNumber: 1, Status: model.BookingApproved, DepartureDate: day},
		{ID: "o", SeatNumber: 3, Status: model.BookingPending, DepartureDate: other},
	}
	rows := ManifestRows(bookings, day)
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "c" {
		t.Fatalf("rows = %+v", rows)
	}
	if all := ManifestRows(bookings, time.Time{}); len(all) != 3 {
		t.Fatalf("undated rows = %d, want 3", len(all))
	}
}

func TestExporterRecordsActivity(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	recorder := service.NewActivityRecorder(store.Activities(), nil)
	seats := service.NewSeatRegistry(store, recorder, 8)
	places := service.NewPlaceCatalog(store, recorder)
	ledger := service.NewBookingLedger(store, seats, recorder)
	if _, err := seats.Initialize(ctx, "", 0); err != nil {
		t.Fatal(err)
	}
	pickup, _ := places.CreatePickupPoint(ctx, "", "Apowa")
	dest, _ := places.CreateDestination(ctx, "", "Accra", 4000)
	dep := time.Now().AddDate(0, 0, 3).Format(time.DateOnly)
	for _, seat := range []int{3, 1} {
		_, err := ledger.CreateBooking(ctx, service.CreateBookingRequest{
			FullName: "Kwame Asare", Class: "Non-Student", Email: "kwame@example.com", Phone: "0240000001",
			ContactPersonName: "Abena", ContactPersonPhone: "0200000001",
			PickupPointID: pickup.ID, DestinationID: dest.ID, DepartureDate: dep, SeatNumber: seat,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	e := New(ledger, seats, recorder, "")
	var bookingsCSV, seatsCSV, pdf bytes.Buffer
	if err := e.Bookings(ctx, "admin-1", nil, &bookingsCSV); err != nil {
		t.Fatalf("bookings export: %v", err)
	}
	if n := strings.Count(bookingsCSV.String(), "\n"); n != 3 {
		t.Fatalf("bookings csv lines = %d, want 3", n)
	}
	if err := e.Seats(ctx, "admin-1", &seatsCSV); err != nil {
		t.Fatalf("seats export: %v", err)
	}
	if n := strings.Count(seatsCSV.String(), "\n"); n != 9 {
		t.Fatalf("seats csv lines = %d, want 9", n)
	}
	if err := e.Manifest(ctx, "admin-1", time.Time{}, &pdf); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if !bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("manifest is not a PDF: %q", pdf.Bytes()[:min(16, pdf.Len())])
	}

	acts, err := recorder.List(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts) != 3 {
		t.Fatalf("activities = %d, want 3", len(acts))
	}
	for _, a := range acts {
		if a.Action != model.ActionDataExported {
			t.Fatalf("activity = %s, want DATA_EXPORTED", a.Action)
		}
	}
}
