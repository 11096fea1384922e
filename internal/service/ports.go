package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
)

// Store is the reservation store.  repository.ReservationRepo implements it
// against MySQL.
type Store interface {
	ConflictsExist(ctx context.Context, listingID uuid.UUID, iv model.Interval) (bool, error)
	ReservedIntervals(ctx context.Context, listingID uuid.UUID) ([]model.Interval, error)
	ListingsWithConflict(ctx context.Context, listingIDs []uuid.UUID, iv model.Interval) (map[uuid.UUID]struct{}, error)
	// CreateIfFree must check for overlap and insert atomically, returning
	// repository.ErrOverlap when the interval is taken.
	CreateIfFree(ctx context.Context, res *model.Reservation) error
	// The deletes report the listing of the removed reservation as stored,
	// and false when nothing matched.
	DeleteByTenant(ctx context.Context, publicID, tenantID uuid.UUID) (listingID uuid.UUID, deleted bool, err error)
	DeleteByListing(ctx context.Context, publicID, listingID uuid.UUID) (deletedFrom uuid.UUID, deleted bool, err error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Reservation, error)
	ListByListings(ctx context.Context, listingIDs []uuid.UUID) ([]model.Reservation, error)
}

// Catalog is the read side of the listing catalog.  Lookups of a single
// listing return repository.ErrListingNotFound when nothing matches.
type Catalog interface {
	ListingForBooking(ctx context.Context, listingID uuid.UUID) (model.BookableListing, error)
	OwnedListing(ctx context.Context, listingID, landlordID uuid.UUID) (model.BookableListing, error)
	CardsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ListingCard, error)
	ListingsByLandlord(ctx context.Context, landlordID uuid.UUID) ([]model.ListingCard, error)
	Search(ctx context.Context, f model.SearchFilters, pr model.PageRequest) (model.Page[model.ListingCard], error)
	ListByCategory(ctx context.Context, category model.Category, pr model.PageRequest) (model.Page[model.ListingCard], error)
}

// Publisher receives booking events after the store has committed.  A
// failing publisher never fails the operation that triggered it.
type Publisher interface {
	BookingCreated(ctx context.Context, res model.Reservation) error
	BookingCanceled(ctx context.Context, c model.Cancellation) error
}

type nopPublisher struct{}

func (nopPublisher) BookingCreated(context.Context, model.Reservation) error    { return nil }
func (nopPublisher) BookingCanceled(context.Context, model.Cancellation) error { return nil }
