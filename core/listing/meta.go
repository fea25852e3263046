package listing

// Meta is the pagination block served next to a page of rows.
type Meta struct {
	Page         int        `json:"page"`
	PerPage      int        `json:"per_page"`
	StartIndex   int        `json:"start_index"`
	EndIndex     int        `json:"end_index"`
	TotalItems   int        `json:"total_items"`
	TotalPages   int        `json:"total_pages"`
	Pages        []PageItem `json:"pages"`
	CompactPages []int      `json:"compact_pages"`
}

func (v View[T]) Meta() Meta {
	return Meta{
		Page:         v.Page.Page,
		PerPage:      v.PerPage,
		StartIndex:   v.StartIndex,
		EndIndex:     v.EndIndex,
		TotalItems:   v.TotalItems,
		TotalPages:   v.TotalPages,
		Pages:        v.Pages,
		CompactPages: v.CompactPages,
	}
}

// ViewOf rebuilds a View from rows and the Meta that came with them.
func ViewOf[T any](rows []T, m Meta) View[T] {
	if rows == nil {
		rows = []T{}
	}
	return View[T]{
		Page: Page[T]{
			Rows:       rows,
			Page:       m.Page,
			PerPage:    m.PerPage,
			StartIndex: m.StartIndex,
			EndIndex:   m.EndIndex,
			TotalItems: m.TotalItems,
			TotalPages: m.TotalPages,
		},
		Pages:        m.Pages,
		CompactPages: m.CompactPages,
	}
}
