package middleware

// identity.go holds the context keys JWTAuth writes and the accessors
// handlers use to read them back.

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyEmail  = "email"
)

// UserID returns the authenticated caller's id.
func UserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(KeyUserID).(uint64)
	return v, ok && v != 0
}

// Role returns the authenticated caller's role.
func Role(c echo.Context) (string, bool) {
	v, ok := c.Get(KeyRole).(string)
	return v, ok && v != ""
}
