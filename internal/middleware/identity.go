package middleware

import "github.com/labstack/echo/v4"

// currentUserID is the caller's public id for rate-limit keys, or "anon"
// when the route is unauthenticated.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
