package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/export"
	"github.com/iliyamo/bus-seat-admin/internal/middleware"
)

// ExportHandler serves CSV and PDF downloads.
type ExportHandler struct {
	Exporter *export.Exporter
	now      func() time.Time
}

// NewExportHandler creates an ExportHandler around exp.
func NewExportHandler(exp *export.Exporter) *ExportHandler {
	return &ExportHandler{Exporter: exp, now: time.Now}
}

// attach sends buf as a download.  Rendering happens into buf first so
// a failure midway still produces a clean JSON error.
func (h *ExportHandler) attach(c echo.Context, kind, ext, contentType string, buf *bytes.Buffer) error {
	name := fmt.Sprintf("%s-%s.%s", kind, h.now().UTC().Format("20060102-150405"), ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// Bookings exports bookings as CSV; ?status= filters.
func (h *ExportHandler) Bookings(c echo.Context) error {
	status, ok := parseStatus(c)
	if !ok {
		return badRequest(c, "invalid status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	var buf bytes.Buffer
	if err := h.Exporter.Bookings(ctx, middleware.AdminID(c), status, &buf); err != nil {
		return fail(c, err)
	}
	return h.attach(c, export.KindBookings, "csv", "text/csv; charset=utf-8", &buf)
}

// Seats exports the seat map as CSV.
func (h *ExportHandler) Seats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	var buf bytes.Buffer
	if err := h.Exporter.Seats(ctx, middleware.AdminID(c), &buf); err != nil {
		return fail(c, err)
	}
	return h.attach(c, export.KindSeats, "csv", "text/csv; charset=utf-8", &buf)
}

// Manifest renders the passenger manifest PDF; ?date=YYYY-MM-DD limits
// it to one departure.
func (h *ExportHandler) Manifest(c echo.Context) error {
	var departure time.Time
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		departure = d
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	var buf bytes.Buffer
	if err := h.Exporter.Manifest(ctx, middleware.AdminID(c), departure, &buf); err != nil {
		return fail(c, err)
	}
	return h.attach(c, export.KindManifest, "pdf", "application/pdf", &buf)
}
