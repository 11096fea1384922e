package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/middleware"
	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/service"
)

// Client-facing reason texts for the engine error kinds.
const (
	msgInvalidInterval     = "Start date must be before end date"
	msgInvalidFilters      = "Invalid search filters"
	msgListingNotFound     = "Landlord public id not found"
	msgIntervalConflict    = "One booking already exists"
	msgReservationNotFound = "Booking not found"
	msgUnauthorized        = "unauthorized"
	msgUnavailable         = "service temporarily unavailable"
	msgInternal            = "internal error"
)

// principalFrom returns the authenticated caller or false.
func principalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.UserID == uuid.Nil {
		return model.Principal{}, false
	}
	return p, true
}

// engineError writes the HTTP response for an engine error.  notAuthorized is
// the status used for ErrNotAuthorized, which differs per endpoint.
func engineError(c echo.Context, log *slog.Logger, err error, notAuthorized int) error {
	status, msg := http.StatusInternalServerError, msgInternal
	switch {
	case errors.Is(err, service.ErrInvalidInterval):
		status, msg = http.StatusBadRequest, msgInvalidInterval
	case errors.Is(err, service.ErrInvalidFilters):
		status, msg = http.StatusBadRequest, msgInvalidFilters
	case errors.Is(err, service.ErrListingNotFound):
		status, msg = http.StatusBadRequest, msgListingNotFound
	case errors.Is(err, service.ErrIntervalConflict):
		status, msg = http.StatusBadRequest, msgIntervalConflict
	case errors.Is(err, service.ErrReservationNotFound):
		status, msg = http.StatusBadRequest, msgReservationNotFound
	case errors.Is(err, service.ErrNotAuthorized):
		status, msg = notAuthorized, msgUnauthorized
		if notAuthorized == http.StatusForbidden {
			msg = "forbidden"
		}
	case errors.Is(err, service.ErrUpstreamUnavailable):
		status, msg = http.StatusServiceUnavailable, msgUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error("engine call failed", "method", c.Request().Method, "route", c.Path(), "err", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// queryUUID parses a required uuid query parameter.
func queryUUID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return uuid.Nil, errors.New(name + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New(name + " must be a uuid")
	}
	return id, nil
}

// pageRequest reads the 0-based page and size query parameters.  Missing or
// malformed values fall back to defaults.
func pageRequest(c echo.Context) model.PageRequest {
	var pr model.PageRequest
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		pr.Page = n
	}
	if n, err := strconv.Atoi(c.QueryParam("size")); err == nil {
		pr.Size = n
	}
	return pr.Normalized()
}
