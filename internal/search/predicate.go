// Package search implements the dashboard's list filtering: a
// case-insensitive substring test over denormalized display fields.
// It is a filter, not a ranking; callers keep source order.
package search

import "strings"

// Matches reports whether the query is a case-insensitive substring of
// any of the given fields. An empty query matches everything.
func Matches(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
