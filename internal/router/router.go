// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bus-seat-admin/internal/config"
	"github.com/iliyamo/bus-seat-admin/internal/handler"
	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/policy"
)

// Deps holds everything the routes need.  Redis may be nil, in which
// case rate limiting and caching are disabled.
type Deps struct {
	Logger     *slog.Logger
	Redis      *redis.Client
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
	JWTSecret  string
	Authorizer *policy.Authorizer
	Store      handler.Pinger

	Auth       *handler.AuthHandler
	Bookings   *handler.BookingHandler
	Seats      *handler.SeatHandler
	Places     *handler.PlaceHandler
	Activities *handler.ActivityHandler
	Exports    *handler.ExportHandler
	Payments   *handler.PaymentHandler
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	// Any successful write may change what the public reads return.
	e.Use(middleware.InvalidateOnWrite(d.Cache, d.Redis))

	e.GET("/healthz", handler.Health(d.Store))

	RegisterPublic(e, d)
	RegisterAuth(e, d)
	RegisterAdmin(e, d)
	return e
}

// RegisterPublic registers the passenger-facing endpoints.  Reads are
// cached; booking creation is held to the strict rate limit.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	cache := middleware.NewRedisCache(d.Cache, d.Redis)

	g.GET("/seats", d.Seats.List, cache)
	g.GET("/pickup-points", d.Places.PublicPickupPoints, cache)
	g.GET("/destinations", d.Places.PublicDestinations, cache)

	g.POST("/bookings", d.Bookings.Create, middleware.NewTokenBucket(d.RateLimit.Strict(), d.Redis))
	g.POST("/payments/webhook", d.Payments.Webhook)
}

// RegisterAuth registers the admin session endpoints.  Logout does not
// require a valid access token so an expired session can still end.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(d.RateLimit.Strict(), d.Redis))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
}
