package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 0-based page request.
type PageRequest struct {
	Page int
	Size int
}

// Normalized clamps the page number and size into their valid ranges.
func (p PageRequest) Normalized() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip for this page.
func (p PageRequest) Offset() int { return p.Page * p.Size }

// Page is one page of results.  Total is what the producer reports, which
// for tenant search is the number of items left on this page after
// availability filtering, not a global count.
type Page[T any] struct {
	Items []T   `json:"content"`
	Total int64 `json:"totalElements"`
	Page  int   `json:"number"`
	Size  int   `json:"size"`
}
