package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/repository"
)

// memStore is an in-memory Store.  CreateIfFree holds the mutex across the
// overlap check and the insert, like the listing lock does in MySQL.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   []model.Reservation

	// failWith, when set, is returned by every call.
	failWith error
	// raceOverlap makes ConflictsExist report free while CreateIfFree
	// reports ErrOverlap, as when another create commits in between.
	raceOverlap bool
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) ConflictsExist(_ context.Context, listingID uuid.UUID, iv model.Interval) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.raceOverlap {
		return false, nil
	}
	return m.conflictLocked(listingID, iv), nil
}

func (m *memStore) conflictLocked(listingID uuid.UUID, iv model.Interval) bool {
	for _, r := range m.rows {
		if r.ListingID == listingID && r.Interval.Overlaps(iv) {
			return true
		}
	}
	return false
}

func (m *memStore) ReservedIntervals(_ context.Context, listingID uuid.UUID) ([]model.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []model.Interval{}
	for _, r := range m.rows {
		if r.ListingID == listingID {
			out = append(out, r.Interval)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *memStore) ListingsWithConflict(_ context.Context, ids []uuid.UUID, iv model.Interval) (map[uuid.UUID]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if m.conflictLocked(id, iv) {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) CreateIfFree(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if m.raceOverlap || m.conflictLocked(res.ListingID, res.Interval) {
		return repository.ErrOverlap
	}
	m.nextID++
	res.ID = m.nextID
	res.PublicID = uuid.New()
	m.rows = append(m.rows, *res)
	return nil
}

func (m *memStore) deleteWhere(match func(model.Reservation) bool) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return uuid.Nil, false, m.failWith
	}
	for i, r := range m.rows {
		if match(r) {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return r.ListingID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (m *memStore) DeleteByTenant(_ context.Context, publicID, tenantID uuid.UUID) (uuid.UUID, bool, error) {
	return m.deleteWhere(func(r model.Reservation) bool { return r.PublicID == publicID && r.TenantID == tenantID })
}

func (m *memStore) DeleteByListing(_ context.Context, publicID, listingID uuid.UUID) (uuid.UUID, bool, error) {
	return m.deleteWhere(func(r model.Reservation) bool { return r.PublicID == publicID && r.ListingID == listingID })
}

func (m *memStore) listWhere(match func(model.Reservation) bool) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []model.Reservation{}
	for _, r := range m.rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]model.Reservation, error) {
	return m.listWhere(func(r model.Reservation) bool { return r.TenantID == tenantID })
}

func (m *memStore) ListByListings(_ context.Context, ids []uuid.UUID) ([]model.Reservation, error) {
	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return m.listWhere(func(r model.Reservation) bool { return set[r.ListingID] })
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeListing struct {
	card     model.ListingCard
	landlord uuid.UUID
	filters  model.SearchFilters
}

// memCatalog is an in-memory Catalog.
type memCatalog struct {
	listings []fakeListing
	failWith error
	// block makes every call wait for ctx to end.
	block bool
}

func (c *memCatalog) add(price int64, landlord uuid.UUID, f model.SearchFilters) uuid.UUID {
	id := uuid.New()
	c.listings = append(c.listings, fakeListing{
		card: model.ListingCard{
			PublicID:        id,
			Price:           model.Price{Value: price},
			Location:        f.Location,
			BookingCategory: model.CategoryBeach,
		},
		landlord: landlord,
		filters:  f,
	})
	return id
}

func (c *memCatalog) check(ctx context.Context) error {
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.failWith
}

func (c *memCatalog) find(id uuid.UUID) (fakeListing, bool) {
	for _, l := range c.listings {
		if l.card.PublicID == id {
			return l, true
		}
	}
	return fakeListing{}, false
}

func (c *memCatalog) ListingForBooking(ctx context.Context, id uuid.UUID) (model.BookableListing, error) {
	if err := c.check(ctx); err != nil {
		return model.BookableListing{}, err
	}
	l, ok := c.find(id)
	if !ok {
		return model.BookableListing{}, repository.ErrListingNotFound
	}
	return model.BookableListing{PublicID: id, NightlyPrice: l.card.Price.Value}, nil
}

func (c *memCatalog) OwnedListing(ctx context.Context, id, landlord uuid.UUID) (model.BookableListing, error) {
	if err := c.check(ctx); err != nil {
		return model.BookableListing{}, err
	}
	l, ok := c.find(id)
	if !ok || l.landlord != landlord {
		return model.BookableListing{}, repository.ErrListingNotFound
	}
	return model.BookableListing{PublicID: id, NightlyPrice: l.card.Price.Value}, nil
}

func (c *memCatalog) CardsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ListingCard, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	out := map[uuid.UUID]model.ListingCard{}
	for _, id := range ids {
		if l, ok := c.find(id); ok {
			out[id] = l.card
		}
	}
	return out, nil
}

func (c *memCatalog) ListingsByLandlord(ctx context.Context, landlord uuid.UUID) ([]model.ListingCard, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	var out []model.ListingCard
	for _, l := range c.listings {
		if l.landlord == landlord {
			out = append(out, l.card)
		}
	}
	return out, nil
}

func (c *memCatalog) Search(ctx context.Context, f model.SearchFilters, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	if err := c.check(ctx); err != nil {
		return model.Page[model.ListingCard]{}, err
	}
	var all []model.ListingCard
	for _, l := range c.listings {
		if l.filters == f {
			all = append(all, l.card)
		}
	}
	return paginate(all, pr), nil
}

func (c *memCatalog) ListByCategory(ctx context.Context, cat model.Category, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	if err := c.check(ctx); err != nil {
		return model.Page[model.ListingCard]{}, err
	}
	var all []model.ListingCard
	for _, l := range c.listings {
		if cat == model.CategoryAll || l.card.BookingCategory == cat {
			all = append(all, l.card)
		}
	}
	return paginate(all, pr), nil
}

func paginate(all []model.ListingCard, pr model.PageRequest) model.Page[model.ListingCard] {
	pr = pr.Normalized()
	start := pr.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + pr.Size
	if end > len(all) {
		end = len(all)
	}
	return model.Page[model.ListingCard]{Items: all[start:end], Total: int64(len(all)), Page: pr.Page, Size: pr.Size}
}

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu       sync.Mutex
	created  []model.Reservation
	canceled []model.Cancellation
	fail     bool
}

var errBrokerDown = errors.New("broker down")

func (p *recordingPublisher) BookingCreated(_ context.Context, r model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.created = append(p.created, r)
	return nil
}

func (p *recordingPublisher) BookingCanceled(_ context.Context, c model.Cancellation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBrokerDown
	}
	p.canceled = append(p.canceled, c)
	return nil
}
