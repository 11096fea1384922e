package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID    = "user_id"
	CtxRoles     = "roles"
	CtxPrincipal = "principal"
)

// JWTAuth validates a Bearer access token and stores the caller in the echo
// context: the public user id under "user_id", the roles under "roles" and
// the assembled model.Principal under "principal".
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, p.UserID.String())
			c.Set(CtxRoles, p.Roles)
			c.Set(CtxPrincipal, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller stored by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(CtxPrincipal).(model.Principal)
	return p, ok
}
