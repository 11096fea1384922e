package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
)

// ListingRepo reads the catalog tables (listings and listing_pictures).
// Listings are written by the catalog service; this repository only exposes
// the projections booking and tenant search need.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// cardSelect joins each listing with at most one cover picture.
const cardSelect = `SELECT l.public_id, l.price, l.location, l.booking_category,
	       p.file, p.file_content_type, p.is_cover
	FROM listings l
	LEFT JOIN listing_pictures p ON p.id = (
	    SELECT MIN(cp.id) FROM listing_pictures cp WHERE cp.listing_id = l.id AND cp.is_cover = TRUE
	)`

// ListingForBooking returns the nightly price snapshot of listingID or
// ErrListingNotFound.
func (r *ListingRepo) ListingForBooking(ctx context.Context, listingID uuid.UUID) (model.BookableListing, error) {
	var l model.BookableListing
	err := r.db.QueryRowContext(ctx,
		`SELECT public_id, price FROM listings WHERE public_id = ? LIMIT 1`,
		listingID.String()).Scan(&l.PublicID, &l.NightlyPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookableListing{}, ErrListingNotFound
	}
	if err != nil {
		return model.BookableListing{}, classify(err)
	}
	return l, nil
}

// OwnedListing returns listingID only if landlordID owns it, otherwise
// ErrListingNotFound.
func (r *ListingRepo) OwnedListing(ctx context.Context, listingID, landlordID uuid.UUID) (model.BookableListing, error) {
	var l model.BookableListing
	err := r.db.QueryRowContext(ctx,
		`SELECT public_id, price FROM listings WHERE public_id = ? AND landlord_public_id = ? LIMIT 1`,
		listingID.String(), landlordID.String()).Scan(&l.PublicID, &l.NightlyPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookableListing{}, ErrListingNotFound
	}
	if err != nil {
		return model.BookableListing{}, classify(err)
	}
	return l, nil
}

// CardsByIDs returns the display cards of the given listings keyed by
// public id.  Unknown ids are simply absent from the result.
func (r *ListingRepo) CardsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ListingCard, error) {
	out := make(map[uuid.UUID]model.ListingCard)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	in, args := inClause(ids)
	cards, err := r.cards(ctx, cardSelect+` WHERE l.public_id IN (`+in+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		out[c.PublicID] = c
	}
	return out, nil
}

// ListingsByLandlord returns the cards of every listing owned by landlordID.
func (r *ListingRepo) ListingsByLandlord(ctx context.Context, landlordID uuid.UUID) ([]model.ListingCard, error) {
	return r.cards(ctx, cardSelect+` WHERE l.landlord_public_id = ? ORDER BY l.id`, landlordID.String())
}

// Search returns one page of listings matching every structural filter
// exactly.  Total is the catalog-wide match count.
func (r *ListingRepo) Search(ctx context.Context, f model.SearchFilters, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	const where = ` WHERE l.location = ? AND l.bathrooms = ? AND l.bedrooms = ? AND l.guests = ? AND l.beds = ?`
	args := []any{f.Location, f.Bathrooms, f.Bedrooms, f.Guests, f.Beds}
	return r.page(ctx, where, args, pr)
}

// ListByCategory returns one page of listings in category, or of all
// listings when category is CategoryAll.
func (r *ListingRepo) ListByCategory(ctx context.Context, category model.Category, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	if category == model.CategoryAll {
		return r.page(ctx, "", nil, pr)
	}
	return r.page(ctx, ` WHERE l.booking_category = ?`, []any{string(category)}, pr)
}

func (r *ListingRepo) page(ctx context.Context, where string, args []any, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	pr = pr.Normalized()
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings l`+where, args...).Scan(&total); err != nil {
		return model.Page[model.ListingCard]{}, classify(err)
	}
	pageArgs := append(append([]any{}, args...), pr.Size, pr.Offset())
	items, err := r.cards(ctx, cardSelect+where+` ORDER BY l.id LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return model.Page[model.ListingCard]{}, err
	}
	return model.Page[model.ListingCard]{Items: items, Total: total, Page: pr.Page, Size: pr.Size}, nil
}

func (r *ListingRepo) cards(ctx context.Context, query string, args ...any) ([]model.ListingCard, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := []model.ListingCard{}
	for rows.Next() {
		var (
			c           model.ListingCard
			category    string
			file        []byte
			contentType sql.NullString
			isCover     sql.NullBool
		)
		if err := rows.Scan(&c.PublicID, &c.Price.Value, &c.Location, &category,
			&file, &contentType, &isCover); err != nil {
			return nil, err
		}
		c.BookingCategory = model.Category(category)
		c.Cover = model.Picture{File: file, FileContentType: contentType.String, IsCover: isCover.Bool}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}
