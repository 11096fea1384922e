package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
)

// ReservationRepo is the MySQL reservation store.  It answers availability
// queries and performs the guarded insert and scoped deletes of the booking
// lifecycle.  Start and end are stored as UTC DATETIME(6).
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// overlapWhere is the half-open overlap rule NOT (end <= s OR start >= e).
const overlapWhere = `NOT (end_at <= ? OR start_at >= ?)`

const reservationCols = `id, public_id, start_at, end_at, total_price, nb_of_travelers, fk_tenant, fk_listing, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConflictsExist reports whether any reservation on listingID overlaps iv.
func (r *ReservationRepo) ConflictsExist(ctx context.Context, listingID uuid.UUID, iv model.Interval) (bool, error) {
	ok, err := conflictsExist(ctx, r.db, listingID, iv)
	return ok, classify(err)
}

func conflictsExist(ctx context.Context, q queryer, listingID uuid.UUID, iv model.Interval) (bool, error) {
	const sel = `SELECT EXISTS(SELECT 1 FROM reservations WHERE fk_listing = ? AND ` + overlapWhere + `)`
	var exists bool
	if err := q.QueryRowContext(ctx, sel, listingID.String(), iv.Start, iv.End).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ReservedIntervals returns every reservation interval of listingID, past
// ones included, ordered by start.
func (r *ReservationRepo) ReservedIntervals(ctx context.Context, listingID uuid.UUID) ([]model.Interval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT start_at, end_at FROM reservations WHERE fk_listing = ? ORDER BY start_at`,
		listingID.String())
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := []model.Interval{}
	for rows.Next() {
		var iv model.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		iv.Start, iv.End = iv.Start.UTC(), iv.End.UTC()
		out = append(out, iv)
	}
	return out, classify(rows.Err())
}

// ListingsWithConflict returns the subset of listingIDs that have at least
// one reservation overlapping iv.  An empty input yields an empty set.
func (r *ReservationRepo) ListingsWithConflict(ctx context.Context, listingIDs []uuid.UUID, iv model.Interval) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	ids := uniqueIDs(listingIDs)
	if len(ids) == 0 {
		return out, nil
	}
	in, args := inClause(ids)
	query := `SELECT DISTINCT fk_listing FROM reservations
	          WHERE fk_listing IN (` + in + `) AND ` + overlapWhere
	args = append(args, iv.Start, iv.End)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, classify(rows.Err())
}

// CreateIfFree inserts res unless it overlaps an existing reservation of the
// same listing, in which case ErrOverlap is returned and nothing is written.
//
// The per-listing row in listing_locks is upserted first.  The upsert takes
// an exclusive row lock held until commit, so concurrent creates for one
// listing run the overlap check one after another and a double booking
// cannot slip in between check and insert.
//
// On success res gets its ID, PublicID and timestamps populated.
func (r *ReservationRepo) CreateIfFree(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO listing_locks (listing_public_id) VALUES (?)
		 ON DUPLICATE KEY UPDATE touched_at = CURRENT_TIMESTAMP(6)`,
		res.ListingID.String()); err != nil {
		return classify(err)
	}

	taken, err := conflictsExist(ctx, tx, res.ListingID, res.Interval)
	if err != nil {
		return classify(err)
	}
	if taken {
		return ErrOverlap
	}

	if res.PublicID == uuid.Nil {
		res.PublicID = uuid.New()
	}
	if res.Travelers == 0 {
		res.Travelers = model.DefaultTravelers
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (public_id, start_at, end_at, total_price, nb_of_travelers, fk_tenant, fk_listing)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.PublicID.String(), res.Interval.Start, res.Interval.End, res.TotalPrice, res.Travelers,
		res.TenantID.String(), res.ListingID.String())
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the row to populate timestamps.
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservations WHERE id = ?`, id,
	).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	res.ID = uint64(id)
	return nil
}

// DeleteByTenant removes reservation publicID if tenantID booked it and
// returns the listing it was on.  deleted is false when nothing matched.
func (r *ReservationRepo) DeleteByTenant(ctx context.Context, publicID, tenantID uuid.UUID) (uuid.UUID, bool, error) {
	return r.delete(ctx,
		`SELECT id, fk_listing FROM reservations WHERE public_id = ? AND fk_tenant = ? FOR UPDATE`,
		publicID.String(), tenantID.String())
}

// DeleteByListing removes reservation publicID if it is on listingID.  The
// caller must already have checked that the requester owns the listing.
func (r *ReservationRepo) DeleteByListing(ctx context.Context, publicID, listingID uuid.UUID) (uuid.UUID, bool, error) {
	return r.delete(ctx,
		`SELECT id, fk_listing FROM reservations WHERE public_id = ? AND fk_listing = ? FOR UPDATE`,
		publicID.String(), listingID.String())
}

// delete locks the row chosen by sel, then removes it, so the listing read
// back is the one of the reservation actually deleted.
func (r *ReservationRepo) delete(ctx context.Context, sel string, args ...any) (uuid.UUID, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, false, classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		id        uint64
		listingID uuid.UUID
	)
	if err := tx.QueryRowContext(ctx, sel, args...).Scan(&id, &listingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, classify(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return uuid.Nil, false, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, false, classify(err)
	}
	committed = true
	return listingID, true, nil
}

// ListByTenant returns every reservation booked by tenantID, newest first.
func (r *ReservationRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE fk_tenant = ? ORDER BY start_at DESC, id DESC`,
		tenantID.String())
}

// ListByListings returns every reservation on any of listingIDs.
func (r *ReservationRepo) ListByListings(ctx context.Context, listingIDs []uuid.UUID) ([]model.Reservation, error) {
	ids := uniqueIDs(listingIDs)
	if len(ids) == 0 {
		return []model.Reservation{}, nil
	}
	in, args := inClause(ids)
	return r.list(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE fk_listing IN (`+in+`) ORDER BY start_at DESC, id DESC`,
		args...)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		var (
			res        model.Reservation
			start, end time.Time
		)
		if err := rows.Scan(&res.ID, &res.PublicID, &start, &end, &res.TotalPrice, &res.Travelers,
			&res.TenantID, &res.ListingID, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		res.Interval = model.Interval{Start: start.UTC(), End: end.UTC()}
		out = append(out, res)
	}
	return out, classify(rows.Err())
}
