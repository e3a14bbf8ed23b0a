package export

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/bus-seat-admin/internal/model"
)

// ManifestRows returns the active bookings, optionally for one
// departure date, ordered by seat number.
func ManifestRows(bookings []model.Booking, departure time.Time) []model.Booking {
	var rows []model.Booking
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		if !departure.IsZero() && b.DepartureDate.Format(time.DateOnly) != departure.Format(time.DateOnly) {
			continue
		}
		rows = append(rows, b)
	}
	slices.SortFunc(rows, func(a, b model.Booking) int { return cmp.Compare(a.SeatNumber, b.SeatNumber) })
	return rows
}

var manifestCols = []struct {
	title string
	width float64
}{
	{"Seat", 12},
	{"Passenger", 48},
	{"Phone", 30},
	{"Pickup", 32},
	{"Destination", 32},
	{"Status", 22},
	{"Paid", 14},
}

// WriteManifestPDF renders rows as an A4 table.
func WriteManifestPDF(w io.Writer, title string, departure, generated time.Time, rows []model.Booking) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	date := "all dates"
	if !departure.IsZero() {
		date = departure.Format(time.DateOnly)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Departure: %s    Passengers: %d    Generated: %s",
		date, len(rows), generated.UTC().Format("2006-01-02 15:04 UTC")))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 9)
	for _, c := range manifestCols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	var total int64
	for _, b := range rows {
		paid := "no"
		if b.PaymentStatus == model.PaymentCompleted {
			paid = "yes"
		}
		cells := []string{
			strconv.Itoa(b.SeatNumber), b.FullName, b.Phone,
			b.PickupPointName, b.DestinationName, string(b.Status), paid,
		}
		for i, c := range manifestCols {
			pdf.CellFormat(c.width, 6, truncate(cells[i], int(c.width/1.9)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		total += b.AmountCents
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, "Total fares: "+Money(total))

	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
