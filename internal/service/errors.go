// Package service implements the booking engine: the reservation lifecycle
// and the tenant search coordinator.  Every operation takes the calling
// principal explicitly and returns one of the error kinds below.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/listing-booking/internal/model"
)

// Error kinds.  Callers classify with errors.Is.
var (
	ErrInvalidInterval     = model.ErrInvalidInterval
	ErrInvalidFilters      = model.ErrInvalidFilters
	ErrListingNotFound     = errors.New("listing not found")
	ErrIntervalConflict    = errors.New("interval already booked")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// upstream wraps a store or catalog failure that has no engine meaning.
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
