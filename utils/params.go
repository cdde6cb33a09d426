package utils

import (
	"net/http"
	"strconv"
	"strings"
)

// NoSort as sortBy keeps the stored order.
const NoSort = "false"

// ListOptions are the query parameters shared by all list endpoints.
type ListOptions struct {
	Page    int
	PerPage int
	Query   string
	SortBy  []string
	Order   int
}

// ParseListOptions reads page, perPage, query, sortBy and order. sortBy is a
// dotted path such as "address.city"; order is 1 or -1.
func ParseListOptions(r *http.Request, defaultSort string) ListOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(q.Get("perPage"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	order := 1
	if q.Get("order") == "-1" {
		order = -1
	}

	sortBy := q.Get("sortBy")
	if sortBy == "" {
		sortBy = defaultSort
	}
	var path []string
	if sortBy != "" && sortBy != NoSort {
		path = strings.Split(sortBy, ".")
	}

	return ListOptions{
		Page:    page,
		PerPage: perPage,
		Query:   strings.TrimSpace(q.Get("query")),
		SortBy:  path,
		Order:   order,
	}
}

// Paginate returns the page of items selected by opts.
func Paginate[T any](items []T, opts ListOptions) []T {
	start := (opts.Page - 1) * opts.PerPage
	if start >= len(items) {
		return []T{}
	}
	end := start + opts.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
