package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/model"
)

// SearchEngine is the tenant search coordinator.  *service.SearchService
// implements it.
type SearchEngine interface {
	Search(ctx context.Context, f model.SearchFilters, dates model.Interval, pr model.PageRequest) (model.Page[model.ListingCard], error)
	GetAllByCategory(ctx context.Context, category model.Category, pr model.PageRequest) (model.Page[model.ListingCard], error)
}

// TenantListingHandler serves /api/tenant-listing.
type TenantListingHandler struct {
	Engine SearchEngine
	Log    *slog.Logger
}

func NewTenantListingHandler(engine SearchEngine, logger *slog.Logger) *TenantListingHandler {
	if engine == nil {
		panic("nil engine passed to NewTenantListingHandler")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TenantListingHandler{Engine: engine, Log: logger}
}

type countValue struct {
	Value int `json:"value"`
}

// searchReq mirrors the web client's search form.
type searchReq struct {
	Dates struct {
		StartDate time.Time `json:"startDate"`
		EndDate   time.Time `json:"endDate"`
	} `json:"dates"`
	Location string `json:"location"`
	Infos    struct {
		Baths    countValue `json:"baths"`
		Bedrooms countValue `json:"bedrooms"`
		Guests   countValue `json:"guests"`
		Beds     countValue `json:"beds"`
	} `json:"infos"`
}

// Search handles POST /api/tenant-listing/search?page=&size=.
func (h *TenantListingHandler) Search(c echo.Context) error {
	var req searchReq
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	f := model.SearchFilters{
		Location:  req.Location,
		Bathrooms: req.Infos.Baths.Value,
		Bedrooms:  req.Infos.Bedrooms.Value,
		Guests:    req.Infos.Guests.Value,
		Beds:      req.Infos.Beds.Value,
	}
	dates := model.Interval{Start: req.Dates.StartDate, End: req.Dates.EndDate}
	page, err := h.Engine.Search(c.Request().Context(), f, dates, pageRequest(c))
	if err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, page)
}

// GetAllByCategory handles GET /api/tenant-listing/get-all-by-category.
func (h *TenantListingHandler) GetAllByCategory(c echo.Context) error {
	raw := c.QueryParam("category")
	if raw == "" {
		raw = string(model.CategoryAll)
	}
	category, ok := model.ParseCategory(raw)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	page, err := h.Engine.GetAllByCategory(c.Request().Context(), category, pageRequest(c))
	if err != nil {
		return engineError(c, h.Log, err, http.StatusUnauthorized)
	}
	return c.JSON(http.StatusOK, page)
}
