package listing

// Page is one page of a collection along with the figures a pagination footer needs.
// StartIndex is zero-based and inclusive, EndIndex exclusive.
type Page[T any] struct {
	Rows       []T
	Page       int
	PerPage    int
	StartIndex int
	EndIndex   int
	TotalItems int
	TotalPages int
}

// Paginate slices rows for currentPage.
//
// A currentPage past the last page is not corrected: Rows is empty and the indices are
// reported as computed, so callers that shrink the collection (e.g. by searching) must
// move the page themselves.
func Paginate[T any](rows []T, currentPage, perPage int) Page[T] {
	total := len(rows)
	start := (currentPage - 1) * perPage
	end := min(start+perPage, total)

	p := Page[T]{
		Page:       currentPage,
		PerPage:    perPage,
		StartIndex: start,
		EndIndex:   end,
		TotalItems: total,
		TotalPages: TotalPages(total, perPage),
	}

	lo := max(start, 0)
	if lo < end {
		p.Rows = rows[lo:end]
	} else {
		p.Rows = []T{}
	}
	return p
}

// TotalPages is ceil(totalItems / perPage).
func TotalPages(totalItems, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (totalItems + perPage - 1) / perPage
}
