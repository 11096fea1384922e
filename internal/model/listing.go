package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Category is the catalog booking category of a listing.  CategoryAll is a
// query-only value meaning "no category filter".
type Category string

const (
	CategoryAll             Category = "ALL"
	CategoryAmazingViews    Category = "AMAZING_VIEWS"
	CategoryOMG             Category = "OMG"
	CategoryTreehouses      Category = "TREEHOUSES"
	CategoryBeach           Category = "BEACH"
	CategoryFarms           Category = "FARMS"
	CategoryTinyHomes       Category = "TINY_HOMES"
	CategoryLake            Category = "LAKE"
	CategoryContainers      Category = "CONTAINERS"
	CategoryCamping         Category = "CAMPING"
	CategoryCastle          Category = "CASTLE"
	CategorySkiing          Category = "SKIING"
	CategoryCampers         Category = "CAMPERS"
	CategoryArtic           Category = "ARTIC"
	CategoryBoat            Category = "BOAT"
	CategoryBedAndBreakfast Category = "BED_AND_BREAKFASTS"
	CategoryRooms           Category = "ROOMS"
	CategoryEarthHomes      Category = "EARTH_HOMES"
	CategoryTower           Category = "TOWER"
	CategoryCaves           Category = "CAVES"
	CategoryLuxes           Category = "LUXES"
	CategoryChefsKitchen    Category = "CHEFS_KITCHEN"
)

var categories = map[Category]struct{}{
	CategoryAll: {}, CategoryAmazingViews: {}, CategoryOMG: {}, CategoryTreehouses: {},
	CategoryBeach: {}, CategoryFarms: {}, CategoryTinyHomes: {}, CategoryLake: {},
	CategoryContainers: {}, CategoryCamping: {}, CategoryCastle: {}, CategorySkiing: {},
	CategoryCampers: {}, CategoryArtic: {}, CategoryBoat: {}, CategoryBedAndBreakfast: {},
	CategoryRooms: {}, CategoryEarthHomes: {}, CategoryTower: {}, CategoryCaves: {},
	CategoryLuxes: {}, CategoryChefsKitchen: {},
}

// ParseCategory normalises raw and reports whether it names a known category.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := categories[c]
	return c, ok
}

// Price wraps an amount in the smallest currency unit.
type Price struct {
	Value int64 `json:"value"`
}

// Picture is a listing picture as exposed to clients.
type Picture struct {
	File            []byte `json:"file"`
	FileContentType string `json:"fileContentType"`
	IsCover         bool   `json:"isCover"`
}

// ListingCard is the catalog display projection of a listing.
type ListingCard struct {
	PublicID        uuid.UUID `json:"publicId"`
	Price           Price     `json:"price"`
	Location        string    `json:"location"`
	Cover           Picture   `json:"cover"`
	BookingCategory Category  `json:"bookingCategory"`
}

// BookableListing is the catalog snapshot taken when a reservation is
// created: the listing id and its nightly price at that moment.
type BookableListing struct {
	PublicID     uuid.UUID
	NightlyPrice int64
}

// SearchFilters are the structural catalog filters of a tenant search.
// Matching is exact on every field.
type SearchFilters struct {
	Location  string `json:"location"`
	Bathrooms int    `json:"baths"`
	Bedrooms  int    `json:"bedrooms"`
	Guests    int    `json:"guests"`
	Beds      int    `json:"beds"`
}

// ErrInvalidFilters is returned by SearchFilters.Validate.
var ErrInvalidFilters = errors.New("search filters: counts must not be negative")

// Validate rejects negative counts.  Zero is a legal exact-match value.
func (f SearchFilters) Validate() error {
	if f.Bathrooms < 0 || f.Bedrooms < 0 || f.Guests < 0 || f.Beds < 0 {
		return ErrInvalidFilters
	}
	return nil
}
