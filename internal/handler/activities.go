package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/service"
)

// ActivityHandler lists the admin audit trail.
type ActivityHandler struct {
	Recorder *service.ActivityRecorder
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(recorder *service.ActivityRecorder) *ActivityHandler {
	return &ActivityHandler{Recorder: recorder}
}

// List returns the newest activities first.  limit defaults to 50 and
// is capped at 200.
func (h *ActivityHandler) List(c echo.Context) error {
	limit, ok := queryInt(c, "limit", service.DefaultActivityLimit)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Recorder.List(ctx, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
