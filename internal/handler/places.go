package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

// PlaceHandler serves pickup points and destinations.
type PlaceHandler struct {
	Places *service.PlaceCatalog
}

// NewPlaceHandler creates a PlaceHandler backed by the place catalog.
func NewPlaceHandler(places *service.PlaceCatalog) *PlaceHandler {
	return &PlaceHandler{Places: places}
}

type pickupReq struct {
	Name string `json:"name"`
}
type destinationReq struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// ----- pickup points -----

// ListPickupPoints returns active pickup points.  Admins may pass
// ?all=true to include deactivated ones.
func (h *PlaceHandler) ListPickupPoints(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Places.ListPickupPoints(ctx, c.QueryParam("all") == "true")
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// PublicPickupPoints never includes deactivated entries.
func (h *PlaceHandler) PublicPickupPoints(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Places.ListPickupPoints(ctx, false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreatePickupPoint adds a pickup point.  The name must be unique among
// active pickup points.
func (h *PlaceHandler) CreatePickupPoint(c echo.Context) error {
	var req pickupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Places.CreatePickupPoint(ctx, middleware.AdminID(c), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePickupPoint renames a pickup point.
func (h *PlaceHandler) UpdatePickupPoint(c echo.Context) error {
	var req pickupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Places.UpdatePickupPoint(ctx, middleware.AdminID(c), c.Param("id"), req.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeactivatePickupPoint hides a pickup point from passengers.
func (h *PlaceHandler) DeactivatePickupPoint(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Places.DeactivatePickupPoint(ctx, middleware.AdminID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ----- destinations -----

// ListDestinations returns active destinations; ?all=true includes
// deactivated ones.
func (h *PlaceHandler) ListDestinations(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Places.ListDestinations(ctx, c.QueryParam("all") == "true")
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// PublicDestinations lists active destinations with their prices.
func (h *PlaceHandler) PublicDestinations(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Places.ListDestinations(ctx, false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateDestination adds a destination with its fare.
func (h *PlaceHandler) CreateDestination(c echo.Context) error {
	var req destinationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Places.CreateDestination(ctx, middleware.AdminID(c), req.Name, req.PriceCents)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// UpdateDestination changes a destination's name or fare.
func (h *PlaceHandler) UpdateDestination(c echo.Context) error {
	var req destinationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Places.UpdateDestination(ctx, middleware.AdminID(c), c.Param("id"), req.Name, req.PriceCents)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeactivateDestination hides a destination from passengers.
func (h *PlaceHandler) DeactivateDestination(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Places.DeactivateDestination(ctx, middleware.AdminID(c), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
