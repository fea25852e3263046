// Package listing holds the list-page state shared by every directory, record and
// announcement page: search, pagination, page-number windows and row selection over an
// in-memory collection.
package listing

import "github.com/trezcool/masomo-console/core"

const (
	DefaultPage    = 1
	DefaultPerPage = 10

	// MaxVisiblePages is the number of page links shown around the current page.
	MaxVisiblePages = 5
)

// PageSizes are the page sizes a list page may offer.
var PageSizes = []int{10, 12, 24, 50, 100}

// IsPageSize reports whether n is one of PageSizes.
func IsPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// Query is the list state carried by a request's query string.
type Query struct {
	Search  string `query:"search"`
	Page    int    `query:"page" validate:"omitempty,min=1"`
	PerPage int    `query:"per_page" validate:"omitempty,oneof=10 12 24 50 100"`
}

// Clean trims the search term and fills in defaults for unset fields.
func (q *Query) Clean() {
	q.Search = core.CleanString(q.Search)
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.PerPage == 0 {
		q.PerPage = DefaultPerPage
	}
}

func (q *Query) Validate() error {
	q.Clean()
	return core.Validate.Struct(q)
}
