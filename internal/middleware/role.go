package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/policy"
)

// Authorize rejects the request with 403 unless the policy allows the
// authenticated admin to perform action.  It must run after JWTAuth.
func Authorize(az *policy.Authorizer, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			in := policy.Input{AdminID: AdminID(c), Role: Role(c), Action: action}
			ok, err := az.Allow(c.Request().Context(), in)
			if err != nil {
				slog.Error("policy evaluation failed", "action", action, "err", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization unavailable"})
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
