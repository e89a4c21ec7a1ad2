package rest

import "github.com/abgdnv/catalog/internal/product/service"

// SearchRequest carries the search box content. Debounce routes the term
// through the session debouncer instead of applying it immediately.
type SearchRequest struct {
	Term     string `json:"term"`
	Debounce bool   `json:"debounce"`
}

// PageRequest selects a page of the filtered list.
type PageRequest struct {
	Page int `json:"page" validate:"required"`
}

// ViewTypeRequest switches the display mode.
type ViewTypeRequest struct {
	ViewType service.ViewType `json:"viewType" validate:"required,oneof=table card"`
}

// SearchAccepted is returned when a debounced search has been scheduled.
type SearchAccepted struct {
	Pending string `json:"pending"`
}
