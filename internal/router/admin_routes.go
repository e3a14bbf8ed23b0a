package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/policy"
)

// RegisterAdmin registers the dashboard endpoints under /v1/admin.  All
// routes require a valid JWT; each route is then checked against the
// authorization policy for its action.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)
	can := func(action string) echo.MiddlewareFunc { return middleware.Authorize(d.Authorizer, action) }

	// ---- Bookings ----
	g.GET("/bookings", d.Bookings.List, can(policy.ActionBookingsRead))
	g.GET("/bookings/:id", d.Bookings.Get, can(policy.ActionBookingsRead))
	g.POST("/bookings/:id/approve", d.Bookings.Approve, can(policy.ActionBookingApprove))
	g.POST("/bookings/:id/reject", d.Bookings.Reject, can(policy.ActionBookingReject))
	g.DELETE("/bookings/:id", d.Bookings.Delete, can(policy.ActionBookingDelete))
	g.GET("/stats", d.Bookings.Stats, can(policy.ActionStatsRead))

	// ---- Seats ----
	g.GET("/seats", d.Seats.List, can(policy.ActionBookingsRead))
	g.POST("/seats/initialize", d.Seats.Initialize, can(policy.ActionSeatsInitialize))
	g.POST("/seats/:number/block", d.Seats.Block, can(policy.ActionSeatToggle))
	g.POST("/seats/:number/unblock", d.Seats.Unblock, can(policy.ActionSeatToggle))
	g.POST("/seats/:number/release", d.Seats.Release, can(policy.ActionSeatRelease))

	// ---- Places ----
	g.GET("/pickup-points", d.Places.ListPickupPoints, can(policy.ActionBookingsRead))
	g.POST("/pickup-points", d.Places.CreatePickupPoint, can(policy.ActionPlacesWrite))
	g.PUT("/pickup-points/:id", d.Places.UpdatePickupPoint, can(policy.ActionPlacesWrite))
	g.DELETE("/pickup-points/:id", d.Places.DeactivatePickupPoint, can(policy.ActionPlacesWrite))
	g.GET("/destinations", d.Places.ListDestinations, can(policy.ActionBookingsRead))
	g.POST("/destinations", d.Places.CreateDestination, can(policy.ActionPlacesWrite))
	g.PUT("/destinations/:id", d.Places.UpdateDestination, can(policy.ActionPlacesWrite))
	g.DELETE("/destinations/:id", d.Places.DeactivateDestination, can(policy.ActionPlacesWrite))

	// ---- Activity log and exports ----
	g.GET("/activities", d.Activities.List, can(policy.ActionActivitiesRead))
	g.GET("/exports/bookings.csv", d.Exports.Bookings, can(policy.ActionDataExport))
	g.GET("/exports/seats.csv", d.Exports.Seats, can(policy.ActionDataExport))
	g.GET("/exports/manifest.pdf", d.Exports.Manifest, can(policy.ActionDataExport))
}
