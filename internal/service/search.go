package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
)

// SearchService answers tenant listing searches.  It reads reservations
// only through the store's conflict query.
type SearchService struct {
	catalog Catalog
	store   Store
	log     *slog.Logger
	timeout time.Duration
}

func NewSearchService(catalog Catalog, store Store, logger *slog.Logger, timeout time.Duration) *SearchService {
	if store == nil || catalog == nil {
		panic("service: NewSearchService requires catalog and store")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchService{catalog: catalog, store: store, log: logger.With("component", "search"), timeout: timeout}
}

func (s *SearchService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Search returns the page of listings matching f with every listing that
// has a reservation overlapping dates removed.  Total is the number of
// listings left on this page, not a catalog-wide count.
func (s *SearchService) Search(ctx context.Context, f model.SearchFilters, dates model.Interval, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	if err := f.Validate(); err != nil {
		return model.Page[model.ListingCard]{}, err
	}
	dates, err := model.NewInterval(dates.Start, dates.End)
	if err != nil {
		return model.Page[model.ListingCard]{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	matched, err := s.catalog.Search(ctx, f, pr.Normalized())
	if err != nil {
		return model.Page[model.ListingCard]{}, upstream("catalog search", err)
	}
	ids := make([]uuid.UUID, 0, len(matched.Items))
	for _, c := range matched.Items {
		ids = append(ids, c.PublicID)
	}
	booked, err := s.store.ListingsWithConflict(ctx, ids, dates)
	if err != nil {
		return model.Page[model.ListingCard]{}, upstream("listings with conflict", err)
	}
	free := make([]model.ListingCard, 0, len(matched.Items))
	for _, c := range matched.Items {
		if _, taken := booked[c.PublicID]; !taken {
			free = append(free, c)
		}
	}
	s.log.Debug("search", "matched", len(matched.Items), "free", len(free), "page", matched.Page)
	return model.Page[model.ListingCard]{
		Items: free,
		Total: int64(len(free)),
		Page:  matched.Page,
		Size:  matched.Size,
	}, nil
}

// GetAllByCategory is a catalog pass-through; availability is not applied.
func (s *SearchService) GetAllByCategory(ctx context.Context, category model.Category, pr model.PageRequest) (model.Page[model.ListingCard], error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	page, err := s.catalog.ListByCategory(ctx, category, pr.Normalized())
	if err != nil {
		return model.Page[model.ListingCard]{}, upstream("catalog by category", err)
	}
	return page, nil
}
