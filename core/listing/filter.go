package listing

import "strings"

// Filter keeps the rows for which any of the strings returned by fields contains term,
// ignoring case. An empty term returns rows unchanged.
func Filter[T any](rows []T, term string, fields func(T) []string) []T {
	if term == "" {
		return rows
	}
	needle := strings.ToLower(term)
	matched := make([]T, 0, len(rows))
	for _, row := range rows {
		for _, fld := range fields(row) {
			if strings.Contains(strings.ToLower(fld), needle) {
				matched = append(matched, row)
				break
			}
		}
	}
	return matched
}
