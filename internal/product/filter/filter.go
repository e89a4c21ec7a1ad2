// Package filter derives the visible part of the catalog from the store contents,
// the search term and the current page.
package filter

import (
	"strings"

	"github.com/abgdnv/catalog/internal/product/store"
)

// DefaultItemsPerPage is the page size of the catalog view.
const DefaultItemsPerPage = 5

// View is the derived state. It is recomputed on demand and never stored.
type View struct {
	Filtered   []store.Product
	TotalPages int
	PageSlice  []store.Product
}

// Matches reports whether the product name contains term, ignoring case.
// An empty term matches every product.
func Matches(p store.Product, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(term))
}

// Derive filters all by term, keeping their order, and slices out the given page.
// page is 1-based. A page outside 1..TotalPages yields an empty slice; it is not clamped.
func Derive(all []store.Product, term string, page, perPage int) View {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}

	filtered := make([]store.Product, 0, len(all))
	for _, p := range all {
		if Matches(p, term) {
			filtered = append(filtered, p)
		}
	}

	return View{
		Filtered:   filtered,
		TotalPages: TotalPages(len(filtered), perPage),
		PageSlice:  pageOf(filtered, page, perPage),
	}
}

// TotalPages returns ceil(n/perPage), which is 0 for an empty result.
func TotalPages(n, perPage int) int {
	if n <= 0 || perPage <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}

func pageOf(filtered []store.Product, page, perPage int) []store.Product {
	if page < 1 || page-1 >= TotalPages(len(filtered), perPage) {
		return []store.Product{}
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(filtered))
	return filtered[start:end:end]
}
