package middleware

// identity.go holds the caller-identity helper shared by the rate limiter
// and the request logger.

import (
	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user's id as a string, or "guest".
func userID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok && v != "" {
		return v
	}
	return "guest"
}
