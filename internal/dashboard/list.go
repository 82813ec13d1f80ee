package dashboard

import "strings"

// EntityList holds one fetched page of rows with a category filter and a
// case-insensitive search. It is safe for a single goroutine only.
type EntityList[T any] struct {
	items    []T
	category func(T) string
	fields   func(T) []string
	filter   string
	search   string
}

// NewEntityList creates a list. category extracts the filter key of a row
// (status, role); fields returns the strings a search matches against.
func NewEntityList[T any](category func(T) string, fields func(T) []string) *EntityList[T] {
	return &EntityList[T]{category: category, fields: fields}
}

// SetItems replaces the rows, keeping the filter and search.
func (l *EntityList[T]) SetItems(items []T) {
	l.items = items
}

// SetFilter restricts rows to one category. "" and "all" clear it.
func (l *EntityList[T]) SetFilter(category string) {
	if strings.EqualFold(category, "all") {
		category = ""
	}
	l.filter = strings.ToLower(strings.TrimSpace(category))
}

func (l *EntityList[T]) SetSearch(term string) {
	l.search = strings.ToLower(strings.TrimSpace(term))
}

// Len is the number of rows before filtering.
func (l *EntityList[T]) Len() int {
	return len(l.items)
}

// Visible returns the rows passing both the filter and the search, in order.
func (l *EntityList[T]) Visible() []T {
	out := make([]T, 0, len(l.items))
	for _, item := range l.items {
		if l.filter != "" && strings.ToLower(l.category(item)) != l.filter {
			continue
		}
		if l.search != "" && !l.matches(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (l *EntityList[T]) matches(item T) bool {
	for _, f := range l.fields(item) {
		if strings.Contains(strings.ToLower(f), l.search) {
			return true
		}
	}
	return false
}
