package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultPageSize is what the grids request when no size is configured.
	DefaultPageSize = 100
	// MaxPageSize caps the page_size query parameter.
	MaxPageSize = 100
)

// Page is the backend's paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether the backend advertised another page.
func (p Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// NormalizePageSize enforces the default and maximum page sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Query builds the page/page_size query for a list call. Page numbers start at 1.
func Query(page, size int) url.Values {
	values := url.Values{}
	values.Set("page_size", strconv.Itoa(NormalizePageSize(size)))
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	return values
}
