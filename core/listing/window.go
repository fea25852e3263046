package listing

import (
	"encoding/json"
	"strconv"
)

// EllipsisMarker stands in for a run of elided page numbers.
const EllipsisMarker = "..."

// PageItem is one entry of a page-number window: a page number or an ellipsis.
type PageItem struct {
	Number   int
	Ellipsis bool
}

func Number(n int) PageItem { return PageItem{Number: n} }

// Ellipsis returns the marker item.
func Ellipsis() PageItem { return PageItem{Ellipsis: true} }

func (it PageItem) String() string {
	if it.Ellipsis {
		return EllipsisMarker
	}
	return strconv.Itoa(it.Number)
}

// MarshalJSON renders numbers as JSON numbers and the marker as "...".
func (it PageItem) MarshalJSON() ([]byte, error) {
	if it.Ellipsis {
		return json.Marshal(EllipsisMarker)
	}
	return json.Marshal(it.Number)
}

func (it *PageItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*it = PageItem{Ellipsis: s == EllipsisMarker}
		if !it.Ellipsis {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			it.Number = n
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*it = PageItem{Number: n}
	return nil
}

// EllipsisWindow returns the page links of a full-width pagination bar: at most
// MaxVisiblePages numbers around currentPage, always anchored on the first and last
// page, with an ellipsis for each elided run.
//
//	current <= 3:        1 2 3 4 5 ... N
//	current >= N-2:      1 ... N-4 N-3 N-2 N-1 N
//	otherwise:           1 ... c-1 c c+1 ... N
func EllipsisWindow(currentPage, totalPages int) []PageItem {
	if totalPages <= MaxVisiblePages {
		return numbers(1, totalPages)
	}

	switch {
	case currentPage <= 3:
		items := numbers(1, 5)
		return append(items, Ellipsis(), Number(totalPages))
	case currentPage >= totalPages-2:
		items := []PageItem{Number(1), Ellipsis()}
		return append(items, numbers(totalPages-4, totalPages)...)
	default:
		return []PageItem{
			Number(1),
			Ellipsis(),
			Number(currentPage - 1),
			Number(currentPage),
			Number(currentPage + 1),
			Ellipsis(),
			Number(totalPages),
		}
	}
}

// CompactWindow returns the MaxVisiblePages page numbers nearest currentPage, clamped to
// [1, totalPages]. Used by narrow layouts: no anchors and no ellipsis.
func CompactWindow(currentPage, totalPages int) []int {
	if totalPages <= 0 {
		return []int{}
	}
	start := max(currentPage-MaxVisiblePages/2, 1)
	end := min(start+MaxVisiblePages-1, totalPages)
	start = max(end-MaxVisiblePages+1, 1)

	pages := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		pages = append(pages, n)
	}
	return pages
}

func numbers(from, to int) []PageItem {
	items := make([]PageItem, 0, max(to-from+1, 0))
	for n := from; n <= to; n++ {
		items = append(items, Number(n))
	}
	return items
}
