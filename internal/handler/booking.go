package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/service"
)

// BookingEngine is the reservation lifecycle as used over HTTP.
// *service.BookingService implements it.
type BookingEngine interface {
	Create(ctx context.Context, p model.Principal, listingID uuid.UUID, iv model.Interval) (model.Reservation, error)
	CheckAvailability(ctx context.Context, listingID uuid.UUID) ([]model.Interval, error)
	Cancel(ctx context.Context, p model.Principal, req service.CancelRequest) (uuid.UUID, error)
	ListForRequester(ctx context.Context, p model.Principal) ([]model.BookedListing, error)
	ListForLandlordListings(ctx context.Context, p model.Principal) ([]model.BookedListing, error)
}

// BookingHandler serves /api/booking.
type BookingHandler struct {
	Engine BookingEngine
	Log    *slog.Logger
}

func NewBookingHandler(engine BookingEngine, logger *slog.Logger) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BookingHandler{Engine: engine, Log: logger}
}

type newBookingReq struct {
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	ListingPublicID string    `json:"listingPublicId"`
}

// Create handles POST /api/booking/create and answers 200 true.
func (h *BookingHandler) Create(c echo.Context) error {
	p, ok := principalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
	}
	var req newBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	listingID, err := uuid.Parse(req.ListingPublicID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listingPublicId must be a uuid"})
	}
	iv := model.Interval{Start: req.StartDate, End: req.EndDate}
	if _, err := h.Engine.Create(c.Request().Context(), p, listingID, iv); err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, true)
}

// CheckAvailability handles GET /api/booking/check-availability.  It is
// public and lists every reserved interval, past ones included.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	listingID, err := queryUUID(c, "listingPublicId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ivs, err := h.Engine.CheckAvailability(c.Request().Context(), listingID)
	if err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, ivs)
}

// ListBooked handles GET /api/booking/get-booked-listing.
func (h *BookingHandler) ListBooked(c echo.Context) error {
	p, ok := principalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
	}
	views, err := h.Engine.ListForRequester(c.Request().Context(), p)
	if err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, views)
}

// Cancel handles DELETE /api/booking/cancel and answers the canceled
// booking's public id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, ok := principalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
	}
	bookingID, err := queryUUID(c, "bookingPublicId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	listingID, err := queryUUID(c, "listingPublicId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	byLandlord := false
	if raw := c.QueryParam("byLandlord"); raw != "" {
		if byLandlord, err = strconv.ParseBool(raw); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "byLandlord must be a boolean"})
		}
	}
	id, err := h.Engine.Cancel(c.Request().Context(), p, service.CancelRequest{
		BookingID: bookingID,
		ListingID: listingID,
		Mode:      model.CancelModeFromFlag(byLandlord),
	})
	if err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, id)
}

// ListForLandlord handles GET /api/booking/get-booked-listing-for-landlord.
func (h *BookingHandler) ListForLandlord(c echo.Context) error {
	p, ok := principalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthorized})
	}
	views, err := h.Engine.ListForLandlordListings(c.Request().Context(), p)
	if err != nil {
		return engineError(c, h.Log, err, http.StatusForbidden)
	}
	return c.JSON(http.StatusOK, views)
}
