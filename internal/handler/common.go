// Package handler contains the Echo HTTP handlers.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidSeat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSeatConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyInitialized),
		errors.Is(err, service.ErrSeatUnavailable),
		errors.Is(err, service.ErrSeatOccupied),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Validation errors also name the
// offending field; unexpected errors are logged and hidden.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	body := echo.Map{"error": err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}
	if status >= 500 {
		slog.Error("request failed", "method", c.Request().Method, "path", c.Path(),
			"admin_id", middleware.AdminID(c), "err", err)
		if status != http.StatusServiceUnavailable {
			body["error"] = "internal error"
		} else {
			body["error"] = "service temporarily unavailable"
		}
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// seatParam parses the :number path parameter.
func seatParam(c echo.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	return n, err == nil
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
