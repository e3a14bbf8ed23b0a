package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

const (
	defaultBookingPage = 50
	maxBookingPage     = 500
)

// BookingHandler serves passenger booking and admin booking management.
type BookingHandler struct {
	Ledger *service.BookingLedger
}

// NewBookingHandler creates a BookingHandler backed by the booking ledger.
func NewBookingHandler(ledger *service.BookingLedger) *BookingHandler {
	return &BookingHandler{Ledger: ledger}
}

type createBookingReq struct {
	FullName           string `json:"full_name"`
	Class              string `json:"class"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	ContactPersonName  string `json:"contact_person_name"`
	ContactPersonPhone string `json:"contact_person_phone"`
	PickupPointID      string `json:"pickup_point_id"`
	DestinationID      string `json:"destination_id"`
	BusType            string `json:"bus_type"`
	Referral           string `json:"referral"`
	DepartureDate      string `json:"departure_date"` // YYYY-MM-DD
	SeatNumber         int    `json:"seat_number"`
	AmountCents        int64  `json:"amount_cents"`
}

type bookingPage struct {
	Items  []model.Booking `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	More   bool            `json:"has_more"`
}

// Create books a seat for a passenger.  Public.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Ledger.CreateBooking(ctx, service.CreateBookingRequest{
		FullName:           req.FullName,
		Class:              req.Class,
		Email:              req.Email,
		Phone:              req.Phone,
		ContactPersonName:  req.ContactPersonName,
		ContactPersonPhone: req.ContactPersonPhone,
		PickupPointID:      req.PickupPointID,
		DestinationID:      req.DestinationID,
		BusType:            req.BusType,
		Referral:           req.Referral,
		DepartureDate:      req.DepartureDate,
		SeatNumber:         req.SeatNumber,
		AmountCents:        req.AmountCents,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// parseStatus reads ?status=; empty means all.
func parseStatus(c echo.Context) (*model.BookingStatus, bool) {
	v := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if v == "" {
		return nil, true
	}
	st := model.BookingStatus(v)
	if !st.Valid() {
		return nil, false
	}
	return &st, true
}

// List pages through bookings newest first, optionally by status.
func (h *BookingHandler) List(c echo.Context) error {
	status, ok := parseStatus(c)
	if !ok {
		return badRequest(c, "invalid status")
	}
	limit, ok := queryInt(c, "limit", defaultBookingPage)
	if !ok || limit == 0 {
		return badRequest(c, "invalid limit")
	}
	limit = min(limit, maxBookingPage)
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page := bookingPage{Items: []model.Booking{}, Limit: limit, Offset: offset}
	i := 0
	for b, err := range h.Ledger.List(ctx, status) {
		if err != nil {
			return fail(c, err)
		}
		if i >= offset+limit {
			page.More = true
			break
		}
		if i >= offset {
			page.Items = append(page.Items, b)
		}
		i++
	}
	return c.JSON(http.StatusOK, page)
}

// Get returns a single booking by id.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Ledger.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Approve confirms a pending booking.  Its seat stays occupied.
func (h *BookingHandler) Approve(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Ledger.Approve(ctx, middleware.AdminID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Reject cancels a booking and frees its seat.
func (h *BookingHandler) Reject(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Ledger.Cancel(ctx, middleware.AdminID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete removes a booking and frees its seat if it still holds it.
func (h *BookingHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Ledger.Delete(ctx, middleware.AdminID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Stats returns the dashboard aggregates.
func (h *BookingHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Ledger.Stats(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
