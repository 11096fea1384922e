package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTravelers is stored on every new reservation; requesters cannot
// choose it yet.
const DefaultTravelers = 1

// Reservation is a confirmed hold of a listing by a tenant for an interval.
// Reservations are immutable once created and are hard-deleted on cancel.
//
// Fields:
//  ID           – internal sequential key, never exposed.
//  PublicID     – the only identifier that crosses the API boundary.
//  Interval     – reserved [start, end) range, stored in UTC.
//  TotalPrice   – nights * nightly price snapshot, smallest currency unit.
//  Travelers    – number of travelers (always DefaultTravelers for now).
//  TenantID     – public id of the requester who booked.
//  ListingID    – public id of the reserved listing.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last modification timestamp.
type Reservation struct {
	ID         uint64    // reservations.id
	PublicID   uuid.UUID // reservations.public_id
	Interval   Interval  // reservations.start_at / end_at
	TotalPrice int64     // reservations.total_price
	Travelers  int       // reservations.nb_of_travelers
	TenantID   uuid.UUID // reservations.fk_tenant
	ListingID  uuid.UUID // reservations.fk_listing
	CreatedAt  time.Time // reservations.created_at
	UpdatedAt  time.Time // reservations.updated_at
}

// BookedListing joins a reservation with the catalog card of its listing.
// It is what tenants and landlords see when listing reservations.
type BookedListing struct {
	Cover           Picture   `json:"cover"`
	Location        string    `json:"location"`
	Dates           Interval  `json:"dates"`
	TotalPrice      Price     `json:"totalPrice"`
	BookingPublicID uuid.UUID `json:"bookingPublicId"`
	ListingPublicID uuid.UUID `json:"listingPublicId"`
}

// CancelMode selects which authorization path a cancellation follows.
type CancelMode int

const (
	// CancelAsTenant deletes only reservations the caller booked.
	CancelAsTenant CancelMode = iota
	// CancelAsLandlord deletes reservations on listings the caller owns.
	CancelAsLandlord
)

// CancelModeFromFlag maps the byLandlord query flag onto a CancelMode.
func CancelModeFromFlag(byLandlord bool) CancelMode {
	if byLandlord {
		return CancelAsLandlord
	}
	return CancelAsTenant
}

func (m CancelMode) String() string {
	switch m {
	case CancelAsLandlord:
		return "landlord"
	default:
		return "tenant"
	}
}

// Cancellation records a successful cancel for event consumers.
type Cancellation struct {
	BookingID  uuid.UUID
	ListingID  uuid.UUID
	CanceledBy uuid.UUID
	Mode       CancelMode
	At         time.Time
}
