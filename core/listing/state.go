package listing

// State is the ephemeral list state of one list page. It is owned by a single goroutine.
//
// Selected is not clamped to the visible page: a search that changes the visible rows
// keeps the selection as is. Only page and page-size changes clear it.
type State[ID comparable] struct {
	SearchTerm   string
	CurrentPage  int
	ItemsPerPage int
	Selected     Selection[ID]
}

// NewState returns the state of a freshly opened list page.
func NewState[ID comparable](perPage int) *State[ID] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &State[ID]{
		CurrentPage:  DefaultPage,
		ItemsPerPage: perPage,
		Selected:     Selection[ID]{},
	}
}

// SetSearchTerm changes the search term; the current page is left to the caller.
func (s *State[ID]) SetSearchTerm(term string) {
	s.SearchTerm = term
}

// OnPageChange moves to page and clears the selection.
func (s *State[ID]) OnPageChange(page int) {
	s.CurrentPage = page
	s.Selected = Selection[ID]{}
}

// OnItemsPerPageChange changes the page size, goes back to the first page and clears the selection.
func (s *State[ID]) OnItemsPerPageChange(size int) {
	s.ItemsPerPage = size
	s.CurrentPage = DefaultPage
	s.Selected = Selection[ID]{}
}

// Toggle adds id to the selection, or removes it.
func (s *State[ID]) Toggle(id ID) {
	s.Selected = s.Selected.Toggle(id)
}

// Query returns the state as request query parameters.
func (s *State[ID]) Query() Query {
	return Query{Search: s.SearchTerm, Page: s.CurrentPage, PerPage: s.ItemsPerPage}
}

// View is what a list page renders: the current page and both page-number windows.
type View[T any] struct {
	Page[T]
	Pages        []PageItem
	CompactPages []int
}

// NewView windows an already paginated page.
func NewView[T any](p Page[T]) View[T] {
	return View[T]{
		Page:         p,
		Pages:        EllipsisWindow(p.Page, p.TotalPages),
		CompactPages: CompactWindow(p.Page, p.TotalPages),
	}
}

// Controller binds a collection to a State: the rows, the fields searched and the row identifier.
type Controller[T any, ID comparable] struct {
	State  *State[ID]
	rows   []T
	fields func(T) []string
	id     func(T) ID
}

func NewController[T any, ID comparable](rows []T, fields func(T) []string, id func(T) ID, perPage int) *Controller[T, ID] {
	return &Controller[T, ID]{
		State:  NewState[ID](perPage),
		rows:   rows,
		fields: fields,
		id:     id,
	}
}

// SetRows replaces the collection, e.g. after a reload. The state is kept.
func (c *Controller[T, ID]) SetRows(rows []T) {
	c.rows = rows
}

// View filters and paginates the collection according to the current state.
func (c *Controller[T, ID]) View() View[T] {
	filtered := Filter(c.rows, c.State.SearchTerm, c.fields)
	return NewView(Paginate(filtered, c.State.CurrentPage, c.State.ItemsPerPage))
}

// SelectAll selects every row of the visible page, or clears the selection.
func (c *Controller[T, ID]) SelectAll(checked bool) {
	c.State.Selected = SelectAll(c.View().Rows, c.id, checked)
}

// ID returns the identifier of row.
func (c *Controller[T, ID]) ID(row T) ID {
	return c.id(row)
}
