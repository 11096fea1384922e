package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/repository"
)

// BookingService is the reservation lifecycle.  It owns reservations: it
// creates them against a catalog price snapshot, answers availability and
// cancels them along one of two authorization paths.
type BookingService struct {
	store   Store
	catalog Catalog
	events  Publisher
	log     *slog.Logger
	timeout time.Duration
}

// NewBookingService wires the lifecycle.  events and logger may be nil.
// timeout bounds every call including store and catalog round trips; zero
// means no bound beyond the caller's context.
func NewBookingService(store Store, catalog Catalog, events Publisher, logger *slog.Logger, timeout time.Duration) *BookingService {
	if store == nil || catalog == nil {
		panic("service: NewBookingService requires store and catalog")
	}
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BookingService{
		store:   store,
		catalog: catalog,
		events:  events,
		log:     logger.With("component", "booking"),
		timeout: timeout,
	}
}

func (s *BookingService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Create books listingID for p over iv.  The total price is the number of
// whole nights times the nightly price read from the catalog now.
func (s *BookingService) Create(ctx context.Context, p model.Principal, listingID uuid.UUID, iv model.Interval) (model.Reservation, error) {
	iv, err := model.NewInterval(iv.Start, iv.End)
	if err != nil {
		return model.Reservation{}, err
	}
	if p.UserID == uuid.Nil {
		return model.Reservation{}, ErrNotAuthorized
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	listing, err := s.catalog.ListingForBooking(ctx, listingID)
	if errors.Is(err, repository.ErrListingNotFound) {
		return model.Reservation{}, fmt.Errorf("listing %s: %w", listingID, ErrListingNotFound)
	}
	if err != nil {
		return model.Reservation{}, upstream("resolve listing", err)
	}

	// Cheap early exit; CreateIfFree repeats the check under the listing lock.
	taken, err := s.store.ConflictsExist(ctx, listing.PublicID, iv)
	if err != nil {
		return model.Reservation{}, upstream("check conflicts", err)
	}
	if taken {
		return model.Reservation{}, ErrIntervalConflict
	}

	res := model.Reservation{
		Interval:   iv,
		TotalPrice: iv.Nights() * listing.NightlyPrice,
		Travelers:  model.DefaultTravelers,
		TenantID:   p.UserID,
		ListingID:  listing.PublicID,
	}
	if err := s.store.CreateIfFree(ctx, &res); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			return model.Reservation{}, ErrIntervalConflict
		}
		return model.Reservation{}, upstream("create reservation", err)
	}
	s.log.Info("reservation created",
		"booking", res.PublicID, "listing", res.ListingID, "tenant", res.TenantID,
		"nights", iv.Nights(), "total_price", res.TotalPrice)

	if err := s.events.BookingCreated(ctx, res); err != nil {
		s.log.Warn("publish booking.created failed", "booking", res.PublicID, "err", err)
	}
	return res, nil
}

// CheckAvailability returns every reserved interval of listingID, past ones
// included.  Unknown listings simply have none.
func (s *BookingService) CheckAvailability(ctx context.Context, listingID uuid.UUID) ([]model.Interval, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ivs, err := s.store.ReservedIntervals(ctx, listingID)
	if err != nil {
		return nil, upstream("reserved intervals", err)
	}
	return ivs, nil
}

// CancelRequest names the reservation to cancel and the path to take.
type CancelRequest struct {
	BookingID uuid.UUID
	ListingID uuid.UUID
	Mode      model.CancelMode
}

// cancelStrategy deletes the reservation if the principal may, and returns
// the listing it was booked on.
type cancelStrategy func(ctx context.Context, s *BookingService, p model.Principal, req CancelRequest) (uuid.UUID, bool, error)

var cancelStrategies = map[model.CancelMode]cancelStrategy{
	model.CancelAsTenant:   cancelAsTenant,
	model.CancelAsLandlord: cancelAsLandlord,
}

func cancelAsTenant(ctx context.Context, s *BookingService, p model.Principal, req CancelRequest) (uuid.UUID, bool, error) {
	return s.store.DeleteByTenant(ctx, req.BookingID, p.UserID)
}

func cancelAsLandlord(ctx context.Context, s *BookingService, p model.Principal, req CancelRequest) (uuid.UUID, bool, error) {
	owned, err := s.catalog.OwnedListing(ctx, req.ListingID, p.UserID)
	if errors.Is(err, repository.ErrListingNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return s.store.DeleteByListing(ctx, req.BookingID, owned.PublicID)
}

// EffectiveCancelMode is the path Cancel will take for p.  The landlord path
// needs the landlord capability; without it the request is handled as the
// tenant's own cancellation.
func EffectiveCancelMode(p model.Principal, requested model.CancelMode) model.CancelMode {
	if requested == model.CancelAsLandlord && p.IsLandlord() {
		return model.CancelAsLandlord
	}
	return model.CancelAsTenant
}

// Cancel deletes a reservation and returns its public id.  Zero deleted
// rows yield ErrReservationNotFound whether the reservation is missing or
// belongs to someone else.
func (s *BookingService) Cancel(ctx context.Context, p model.Principal, req CancelRequest) (uuid.UUID, error) {
	if p.UserID == uuid.Nil {
		return uuid.Nil, ErrNotAuthorized
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	mode := EffectiveCancelMode(p, req.Mode)
	listingID, deleted, err := cancelStrategies[mode](ctx, s, p, req)
	if err != nil {
		return uuid.Nil, upstream("cancel reservation", err)
	}
	if !deleted {
		return uuid.Nil, ErrReservationNotFound
	}
	s.log.Info("reservation canceled", "booking", req.BookingID, "listing", listingID, "by", p.UserID, "mode", mode.String())

	c := model.Cancellation{
		BookingID:  req.BookingID,
		ListingID:  listingID,
		CanceledBy: p.UserID,
		Mode:       mode,
		At:         time.Now().UTC(),
	}
	if err := s.events.BookingCanceled(ctx, c); err != nil {
		s.log.Warn("publish booking.canceled failed", "booking", req.BookingID, "err", err)
	}
	return req.BookingID, nil
}

// ListForRequester returns p's reservations joined with their listing cards.
func (s *BookingService) ListForRequester(ctx context.Context, p model.Principal) ([]model.BookedListing, error) {
	if p.UserID == uuid.Nil {
		return nil, ErrNotAuthorized
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	reservations, err := s.store.ListByTenant(ctx, p.UserID)
	if err != nil {
		return nil, upstream("list reservations", err)
	}
	ids := make([]uuid.UUID, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ListingID)
	}
	cards, err := s.catalog.CardsByIDs(ctx, ids)
	if err != nil {
		return nil, upstream("listing cards", err)
	}
	return joinCards(reservations, cards)
}

// ListForLandlordListings returns every reservation on listings p owns.
func (s *BookingService) ListForLandlordListings(ctx context.Context, p model.Principal) ([]model.BookedListing, error) {
	if p.UserID == uuid.Nil || !p.IsLandlord() {
		return nil, ErrNotAuthorized
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	owned, err := s.catalog.ListingsByLandlord(ctx, p.UserID)
	if err != nil {
		return nil, upstream("landlord listings", err)
	}
	cards := make(map[uuid.UUID]model.ListingCard, len(owned))
	ids := make([]uuid.UUID, 0, len(owned))
	for _, c := range owned {
		cards[c.PublicID] = c
		ids = append(ids, c.PublicID)
	}
	reservations, err := s.store.ListByListings(ctx, ids)
	if err != nil {
		return nil, upstream("list reservations", err)
	}
	return joinCards(reservations, cards)
}

// joinCards pairs each reservation with its listing card.  A reservation
// whose listing is missing from the catalog is an error, not a skip.
func joinCards(reservations []model.Reservation, cards map[uuid.UUID]model.ListingCard) ([]model.BookedListing, error) {
	out := make([]model.BookedListing, 0, len(reservations))
	for _, r := range reservations {
		card, ok := cards[r.ListingID]
		if !ok {
			return nil, fmt.Errorf("booking %s: listing %s missing from catalog", r.PublicID, r.ListingID)
		}
		out = append(out, model.BookedListing{
			Cover:           card.Cover,
			Location:        card.Location,
			Dates:           r.Interval,
			TotalPrice:      model.Price{Value: r.TotalPrice},
			BookingPublicID: r.PublicID,
			ListingPublicID: card.PublicID,
		})
	}
	return out, nil
}
