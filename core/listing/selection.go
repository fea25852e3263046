package listing

import "sort"

// Selection is a set of row identifiers.
type Selection[ID comparable] map[ID]struct{}

// NewSelection returns a selection holding ids.
func NewSelection[ID comparable](ids ...ID) Selection[ID] {
	s := make(Selection[ID], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// SelectAll selects exactly the rows of the page when checked, and nothing otherwise.
func SelectAll[T any, ID comparable](rows []T, id func(T) ID, checked bool) Selection[ID] {
	if !checked {
		return Selection[ID]{}
	}
	s := make(Selection[ID], len(rows))
	for _, row := range rows {
		s[id(row)] = struct{}{}
	}
	return s
}

// Toggle returns a copy of s with id added, or removed if it was already selected.
func (s Selection[ID]) Toggle(id ID) Selection[ID] {
	out := make(Selection[ID], len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	if _, ok := out[id]; ok {
		delete(out, id)
	} else {
		out[id] = struct{}{}
	}
	return out
}

func (s Selection[ID]) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s Selection[ID]) Len() int { return len(s) }

// IDs returns the selected ids in no particular order.
func (s Selection[ID]) IDs() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// SortedIDs returns the selected string ids in ascending order.
func SortedIDs(s Selection[string]) []string {
	ids := s.IDs()
	sort.Strings(ids)
	return ids
}
