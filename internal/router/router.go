package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/handler"
	"github.com/iliyamo/listing-booking/internal/middleware"
	"github.com/iliyamo/listing-booking/internal/model"
)

// RegisterRoutes registers the liveness and readiness probes.  Neither sits
// behind authentication so load balancers can reach them.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Healthz)
	e.GET("/readyz", handler.Readyz(db))
}

// RegisterAuth registers the account endpoints.  Token issuing operations
// live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh_token body or a Bearer header, so it
	// does its own token handling instead of using JWTAuth.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterBooking registers /api/booking.  Availability is public; every
// other route needs a caller.  createLimit is the tighter bucket applied to
// booking creation and may be nil.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, createLimit echo.MiddlewareFunc) {
	g := e.Group("/api/booking")
	g.GET("/check-availability", b.CheckAvailability)

	jwt := middleware.JWTAuth(jwtSecret)
	create := []echo.MiddlewareFunc{jwt}
	if createLimit != nil {
		create = append(create, createLimit)
	}
	g.POST("/create", b.Create, create...)
	g.GET("/get-booked-listing", b.ListBooked, jwt)
	g.DELETE("/cancel", b.Cancel, jwt)
	g.GET("/get-booked-listing-for-landlord", b.ListForLandlord, jwt, middleware.RequireRole(model.RoleLandlord))
}

// RegisterTenantListing registers the public catalog routes.  Only the
// category listing goes through the response cache: search results depend
// on live reservations.
func RegisterTenantListing(e *echo.Echo, t *handler.TenantListingHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api/tenant-listing")
	g.POST("/search", t.Search)
	if cache != nil {
		g.GET("/get-all-by-category", t.GetAllByCategory, cache)
		return
	}
	g.GET("/get-all-by-category", t.GetAllByCategory)
}
