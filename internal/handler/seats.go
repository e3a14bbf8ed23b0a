package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

// SeatHandler serves the seat map and the admin seat operations.
type SeatHandler struct {
	Seats *service.SeatRegistry
}

// NewSeatHandler creates a SeatHandler backed by the seat registry.
func NewSeatHandler(seats *service.SeatRegistry) *SeatHandler {
	return &SeatHandler{Seats: seats}
}

type seatMapResp struct {
	Capacity  int          `json:"capacity"`
	Available int          `json:"available"`
	Seats     []model.Seat `json:"seats"`
}

type initializeReq struct {
	Capacity int `json:"capacity"`
}

// List returns every seat with its state.  Public.
func (h *SeatHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.Seats.Snapshot(ctx)
	if err != nil {
		return fail(c, err)
	}
	resp := seatMapResp{Capacity: h.Seats.Capacity(), Seats: seats}
	for _, s := range seats {
		if s.IsAvailable() {
			resp.Available++
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Initialize creates the seat set.  An empty body uses the configured
// capacity; any other capacity is rejected with 400.
func (h *SeatHandler) Initialize(c echo.Context) error {
	var req initializeReq
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.Seats.Initialize(ctx, middleware.AdminID(c), req.Capacity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"capacity": len(seats), "seats": seats})
}

// Block takes an AVAILABLE seat out of sale.  An OCCUPIED seat yields 409.
func (h *SeatHandler) Block(c echo.Context) error { return h.setBlocked(c, true) }

// Unblock returns a BLOCKED seat to sale; other seats are left as is.
func (h *SeatHandler) Unblock(c echo.Context) error { return h.setBlocked(c, false) }

func (h *SeatHandler) setBlocked(c echo.Context, blocked bool) error {
	n, ok := seatParam(c)
	if !ok {
		return badRequest(c, "invalid seat number")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Seats.SetBlocked(ctx, middleware.AdminID(c), n, blocked)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Release frees a seat whose booking no longer exists.
func (h *SeatHandler) Release(c echo.Context) error {
	n, ok := seatParam(c)
	if !ok {
		return badRequest(c, "invalid seat number")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Seats.AdminRelease(ctx, middleware.AdminID(c), n)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
