package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
)

var (
	lockUpsert   = regexp.QuoteMeta(`INSERT INTO listing_locks (listing_public_id) VALUES (?)`)
	overlapQuery = regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM reservations WHERE fk_listing = ? AND NOT (end_at <= ? OR start_at >= ?))`)
	insertRes    = regexp.QuoteMeta(`INSERT INTO reservations (public_id, start_at, end_at, total_price, nb_of_travelers, fk_tenant, fk_listing)`)
)

func newMockRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db), mock
}

func stay(startDay, endDay int) model.Interval {
	return model.Interval{
		Start: time.Date(2024, time.January, startDay, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, endDay, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateIfFreeLocksChecksThenInserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	listing, tenant := uuid.New(), uuid.New()
	iv := stay(1, 4)
	created := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockUpsert).WithArgs(listing.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(overlapQuery).
		WithArgs(listing.String(), iv.Start, iv.End).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(insertRes).
		WithArgs(sqlmock.AnyArg(), iv.Start, iv.End, int64(300), model.DefaultTravelers, tenant.String(), listing.String()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at, updated_at FROM reservations WHERE id = ?`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
	mock.ExpectCommit()

	res := model.Reservation{Interval: iv, TotalPrice: 300, TenantID: tenant, ListingID: listing}
	if err := repo.CreateIfFree(context.Background(), &res); err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ID != 7 || res.PublicID == uuid.Nil || !res.CreatedAt.Equal(created) {
		t.Errorf("reservation = %+v", res)
	}
	if res.Travelers != model.DefaultTravelers {
		t.Errorf("travelers = %d", res.Travelers)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateIfFreeOverlapRollsBackWithoutInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	listing := uuid.New()
	iv := stay(3, 5)

	mock.ExpectBegin()
	mock.ExpectExec(lockUpsert).WithArgs(listing.String()).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(overlapQuery).
		WithArgs(listing.String(), iv.Start, iv.End).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	res := model.Reservation{Interval: iv, TotalPrice: 200, TenantID: uuid.New(), ListingID: listing}
	if err := repo.CreateIfFree(context.Background(), &res); !errors.Is(err, ErrOverlap) {
		t.Fatalf("err = %v, want ErrOverlap", err)
	}
	if res.ID != 0 {
		t.Errorf("ID = %d, nothing should have been inserted", res.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateIfFreeDeadlockIsBusy(t *testing.T) {
	repo, mock := newMockRepo(t)
	listing := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(lockUpsert).WithArgs(listing.String()).
		WillReturnError(&mysql.MySQLError{Number: errDeadlock, Message: "Deadlock found"})
	mock.ExpectRollback()

	res := model.Reservation{Interval: stay(1, 2), ListingID: listing, TenantID: uuid.New()}
	if err := repo.CreateIfFree(context.Background(), &res); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteByTenantReturnsStoredListing(t *testing.T) {
	repo, mock := newMockRepo(t)
	booking, tenant, listing := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, fk_listing FROM reservations WHERE public_id = ? AND fk_tenant = ? FOR UPDATE`)).
		WithArgs(booking.String(), tenant.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fk_listing"}).AddRow(int64(7), listing.String()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reservations WHERE id = ?`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, deleted, err := repo.DeleteByTenant(context.Background(), booking, tenant)
	if err != nil || !deleted || got != listing {
		t.Fatalf("delete = %v, %v, %v; want %v", got, deleted, err, listing)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeleteByListingNoMatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	booking, listing := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, fk_listing FROM reservations WHERE public_id = ? AND fk_listing = ? FOR UPDATE`)).
		WithArgs(booking.String(), listing.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fk_listing"}))
	mock.ExpectRollback()

	got, deleted, err := repo.DeleteByListing(context.Background(), booking, listing)
	if err != nil || deleted || got != uuid.Nil {
		t.Fatalf("delete = %v, %v, %v; want nothing deleted", got, deleted, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListByTenantScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	tenant, listing, booking := uuid.New(), uuid.New(), uuid.New()
	iv := stay(1, 4)
	created := time.Date(2023, time.December, 20, 12, 0, 0, 0, time.UTC)

	cols := []string{"id", "public_id", "start_at", "end_at", "total_price", "nb_of_travelers",
		"fk_tenant", "fk_listing", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE fk_tenant = ?`)).
		WithArgs(tenant.String()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(3), booking.String(), iv.Start, iv.End,
			int64(300), int64(1), tenant.String(), listing.String(), created, created))

	got, err := repo.ListByTenant(context.Background(), tenant)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d reservations", len(got))
	}
	r := got[0]
	if r.ID != 3 || r.PublicID != booking || r.ListingID != listing || r.TenantID != tenant {
		t.Errorf("ids = %+v", r)
	}
	if !r.Interval.Start.Equal(iv.Start) || !r.Interval.End.Equal(iv.End) || r.TotalPrice != 300 {
		t.Errorf("reservation = %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListingsWithConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	busy, free := uuid.New(), uuid.New()
	iv := stay(2, 3)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT fk_listing FROM reservations`)).
		WithArgs(busy.String(), free.String(), iv.Start, iv.End).
		WillReturnRows(sqlmock.NewRows([]string{"fk_listing"}).AddRow(busy.String()))

	got, err := repo.ListingsWithConflict(context.Background(), []uuid.UUID{busy, free, busy}, iv)
	if err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if _, ok := got[busy]; !ok || len(got) != 1 {
		t.Errorf("conflict set = %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	empty, err := repo.ListingsWithConflict(context.Background(), nil, iv)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty input = %v, %v", empty, err)
	}
}
