// Package domain provides types shared by the domain packages.
package domain

// Pagination bounds for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// EmptyResult returns a result with no items for the given page.
func EmptyResult[T any](p Page) ListResult[T] {
	return ListResult[T]{Items: []T{}, Limit: p.Limit, Offset: p.Offset}
}
