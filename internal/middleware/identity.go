package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	CtxAdminID = "admin_id"
	CtxRole    = "role"
)

// AdminID returns the authenticated admin's id, or "" for anonymous
// requests.
func AdminID(c echo.Context) string {
	s, _ := c.Get(CtxAdminID).(string)
	return s
}

// Role returns the authenticated admin's role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// clientID identifies the caller for rate limiting: the admin id when
// authenticated, "anon" otherwise.
func clientID(c echo.Context) string {
	if id := AdminID(c); id != "" {
		return id
	}
	return "anon"
}
