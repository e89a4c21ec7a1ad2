// Package service implements the catalog session: it owns the search and
// pagination state, routes form submissions through validation into the store
// and derives the view handed to the rendering layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/catalog/internal/debounce"
	producterrors "github.com/abgdnv/catalog/internal/product/errors"
	"github.com/abgdnv/catalog/internal/product/filter"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abgdnv/catalog/internal/product/service"

// CatalogService defines the hooks the rendering layer may use to read state
// or request a mutation.
type CatalogService interface {
	// View derives the current page of the catalog.
	View(ctx context.Context) View

	// Products returns every stored product in store order.
	Products(ctx context.Context) []store.Product

	// SearchInput feeds a keystroke of the search box. The term is applied
	// once the input has been quiet for the debounce window.
	SearchInput(ctx context.Context, term string)

	// SearchChanged applies a new search term immediately. A different term
	// resets the current page to 1.
	SearchChanged(ctx context.Context, term string) View

	// ChangePage moves to page. Pages outside 1..max(totalPages, 1) are ignored.
	ChangePage(ctx context.Context, page int) View

	// SetViewType switches the display mode.
	// Returns ErrInvalidViewType for an unknown mode.
	SetViewType(ctx context.Context, viewType ViewType) (View, error)

	// SaveProduct validates form and creates a product (editingID == 0) or
	// merges it over the product with editingID. Saving over an unknown ID is
	// absorbed and reported with applied == false.
	// Returns a *ValidationError if the form is rejected.
	SaveProduct(ctx context.Context, form validation.ProductForm, editingID int) (product store.Product, applied bool, err error)

	// SubmitForm saves form against the product being edited, if any, and
	// closes the form on success. A rejected form stays open. Without an open
	// form nothing is saved and applied is false.
	SubmitForm(ctx context.Context, form validation.ProductForm) (product store.Product, applied bool, err error)

	// DeleteProduct removes a product. Unknown IDs are ignored and reported with false.
	DeleteProduct(ctx context.Context, id int) bool

	// EditRequest opens the form prefilled with the product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	EditRequest(ctx context.Context, id int) (FormState, error)

	// OpenCreateForm opens an empty form.
	OpenCreateForm(ctx context.Context) FormState

	// CancelForm closes the form and forgets the product being edited.
	CancelForm(ctx context.Context) FormState

	// Categories returns the options of the category selector.
	Categories() []string
}

// ViewType is the display mode of the product list. Rendering concern only.
type ViewType string

const (
	ViewTable ViewType = "table"
	ViewCard  ViewType = "card"
)

// Valid reports whether v is a known display mode.
func (v ViewType) Valid() bool {
	return v == ViewTable || v == ViewCard
}

// FormState describes the add/edit form.
type FormState struct {
	Open    bool                    `json:"open"`
	Editing *store.Product          `json:"editing,omitempty"`
	Values  *validation.ProductForm `json:"values,omitempty"`
}

// View is what the rendering layer gets per render cycle.
type View struct {
	PageSlice    []store.Product `json:"products"`
	TotalPages   int             `json:"totalPages"`
	CurrentPage  int             `json:"currentPage"`
	ItemsPerPage int             `json:"itemsPerPage"`
	TotalMatches int             `json:"totalMatches"`
	SearchTerm   string          `json:"searchTerm"`
	ViewType     ViewType        `json:"viewType"`
	Form         FormState       `json:"form"`
}

// Options configures a Catalog. Zero values fall back to the defaults.
type Options struct {
	ItemsPerPage    int
	DebounceWindow  time.Duration
	DefaultViewType ViewType
	// Clock drives the search debouncer. Defaults to the real clock.
	Clock debounce.Clock
	// OnChange is called after every state transition with the new view.
	// It runs while the session is locked and must not call back into the Catalog.
	OnChange func(View)
}

// Catalog implements CatalogService. Every hook runs to completion under one
// lock, so events from HTTP handlers and from the debounce timer never overlap.
type Catalog struct {
	store     store.ProductStore
	logger    *slog.Logger
	debouncer *debounce.Debouncer
	onChange  func(View)
	tracer    trace.Tracer
	metrics   catalogMetrics

	mu           sync.Mutex
	searchTerm   string
	currentPage  int
	itemsPerPage int
	viewType     ViewType
	formOpen     bool
	editingID    int
}

type catalogMetrics struct {
	created       metric.Int64Counter
	updated       metric.Int64Counter
	deleted       metric.Int64Counter
	rejected      metric.Int64Counter
	searchChanges metric.Int64Counter
}

var _ CatalogService = (*Catalog)(nil)

// NewCatalog creates a catalog session over productStore.
func NewCatalog(productStore store.ProductStore, logger *slog.Logger, opts Options) *Catalog {
	if opts.ItemsPerPage <= 0 {
		opts.ItemsPerPage = filter.DefaultItemsPerPage
	}
	if !opts.DefaultViewType.Valid() {
		opts.DefaultViewType = ViewTable
	}

	c := &Catalog{
		store:        productStore,
		logger:       logger.With("component", "catalog"),
		onChange:     opts.OnChange,
		tracer:       otel.Tracer(instrumentationName),
		metrics:      newCatalogMetrics(),
		currentPage:  1,
		itemsPerPage: opts.ItemsPerPage,
		viewType:     opts.DefaultViewType,
	}

	var debounceOpts []debounce.Option
	if opts.Clock != nil {
		debounceOpts = append(debounceOpts, debounce.WithClock(opts.Clock))
	}
	c.debouncer = debounce.New(opts.DebounceWindow, func(term string) {
		c.applySearch(context.Background(), term)
	}, debounceOpts...)

	return c
}

func newCatalogMetrics() catalogMetrics {
	meter := otel.Meter(instrumentationName)
	return catalogMetrics{
		created:       mustCounter(meter, "catalog_products_created", "Total number of created products"),
		updated:       mustCounter(meter, "catalog_products_updated", "Total number of updated products"),
		deleted:       mustCounter(meter, "catalog_products_deleted", "Total number of deleted products"),
		rejected:      mustCounter(meter, "catalog_forms_rejected", "Total number of product forms rejected by validation"),
		searchChanges: mustCounter(meter, "catalog_search_changes", "Total number of applied search term changes"),
	}
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// Close cancels a pending debounced search. The session must not be used afterwards.
func (c *Catalog) Close() {
	c.debouncer.Stop()
}

// View derives the current page of the catalog.
func (c *Catalog) View(_ context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Products returns every stored product.
func (c *Catalog) Products(_ context.Context) []store.Product {
	return c.store.All()
}

// SearchInput pushes term through the debouncer.
func (c *Catalog) SearchInput(ctx context.Context, term string) {
	c.logger.DebugContext(ctx, "Search input received", "term", term)
	// not under c.mu: the debouncer emits into applySearch, which takes it
	c.debouncer.Push(term)
}

// SearchChanged applies term and resets the page when the term differs.
// A debounced term still waiting is older and gets dropped.
func (c *Catalog) SearchChanged(ctx context.Context, term string) View {
	c.debouncer.Cancel()
	return c.applySearch(ctx, term)
}

func (c *Catalog) applySearch(ctx context.Context, term string) View {
	_, span := c.tracer.Start(ctx, "Catalog.SearchChanged", trace.WithAttributes(attribute.String("search.term", term)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if term != c.searchTerm {
		c.searchTerm = term
		c.currentPage = 1
		c.metrics.searchChanges.Add(ctx, 1)
		c.logger.DebugContext(ctx, "Search term changed", "term", term)
	}
	return c.changedLocked()
}

// ChangePage moves to page when it is within bounds.
func (c *Catalog) ChangePage(ctx context.Context, page int) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	derived := c.deriveLocked()
	if page < 1 || page > max(derived.TotalPages, 1) {
		c.logger.DebugContext(ctx, "Ignoring out of range page", "page", page, "total_pages", derived.TotalPages)
		return c.viewLocked()
	}
	c.currentPage = page
	return c.changedLocked()
}

// SetViewType switches the display mode.
func (c *Catalog) SetViewType(ctx context.Context, viewType ViewType) (View, error) {
	if !viewType.Valid() {
		return View{}, fmt.Errorf("%w: %q", producterrors.ErrInvalidViewType, viewType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.viewType = viewType
	c.logger.DebugContext(ctx, "View type changed", "view_type", viewType)
	return c.changedLocked(), nil
}

// SaveProduct validates form and creates or updates a product.
func (c *Catalog) SaveProduct(ctx context.Context, form validation.ProductForm, editingID int) (store.Product, bool, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.SaveProduct", trace.WithAttributes(attribute.Int("product.editing_id", editingID)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	product, applied, err := c.saveLocked(ctx, form, editingID)
	if err != nil {
		span.RecordError(err)
		return store.Product{}, false, err
	}
	c.changedLocked()
	return product, applied, nil
}

// SubmitForm saves form against the product being edited. A submit without
// an open form is ignored.
func (c *Catalog) SubmitForm(ctx context.Context, form validation.ProductForm) (store.Product, bool, error) {
	ctx, span := c.tracer.Start(ctx, "Catalog.SubmitForm")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.formOpen {
		c.logger.DebugContext(ctx, "Submit without an open form ignored")
		return store.Product{}, false, nil
	}

	product, applied, err := c.saveLocked(ctx, form, c.editingID)
	if err != nil {
		span.RecordError(err)
		return store.Product{}, false, err
	}
	c.formOpen = false
	c.editingID = 0
	c.changedLocked()
	return product, applied, nil
}

// DeleteProduct removes a product. The current page is left as is, even if
// it is now past the last page.
func (c *Catalog) DeleteProduct(ctx context.Context, id int) bool {
	ctx, span := c.tracer.Start(ctx, "Catalog.DeleteProduct", trace.WithAttributes(attribute.Int("product.id", id)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.Delete(id) {
		c.logger.DebugContext(ctx, "Delete of unknown product ignored", "ID", id)
		return false
	}
	c.metrics.deleted.Add(ctx, 1)
	c.logger.InfoContext(ctx, "Product deleted", "ID", id)
	c.changedLocked()
	return true
}

// EditRequest opens the form for the product with the given ID.
func (c *Catalog) EditRequest(ctx context.Context, id int) (FormState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.FindByID(id); !ok {
		return FormState{}, fmt.Errorf("failed to edit product with ID %d: %w", id, producterrors.ErrProductNotFound)
	}
	c.formOpen = true
	c.editingID = id
	c.logger.DebugContext(ctx, "Editing product", "ID", id)
	c.changedLocked()
	return c.formLocked(), nil
}

// OpenCreateForm opens an empty form.
func (c *Catalog) OpenCreateForm(_ context.Context) FormState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.formOpen = true
	c.editingID = 0
	c.changedLocked()
	return c.formLocked()
}

// CancelForm closes the form.
func (c *Catalog) CancelForm(_ context.Context) FormState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.formOpen = false
	c.editingID = 0
	c.changedLocked()
	return c.formLocked()
}

// Categories returns the options of the category selector.
func (c *Catalog) Categories() []string {
	return append([]string(nil), validation.Categories...)
}

func (c *Catalog) saveLocked(ctx context.Context, form validation.ProductForm, editingID int) (store.Product, bool, error) {
	fields, err := validation.Normalize(form)
	if err != nil {
		c.metrics.rejected.Add(ctx, 1)
		c.logger.WarnContext(ctx, "Product form rejected", "error", err)
		return store.Product{}, false, err
	}

	if editingID == 0 {
		created := c.store.Create(fields)
		c.metrics.created.Add(ctx, 1)
		c.logger.InfoContext(ctx, "Product created", "ID", created.ID, "Name", created.Name)
		return created, true, nil
	}

	updated, ok := c.store.Update(editingID, store.PatchFrom(fields))
	if !ok {
		c.logger.DebugContext(ctx, "Update of unknown product ignored", "ID", editingID)
		return store.Product{}, false, nil
	}
	c.metrics.updated.Add(ctx, 1)
	c.logger.InfoContext(ctx, "Product updated", "ID", updated.ID, "Name", updated.Name)
	return updated, true, nil
}

func (c *Catalog) deriveLocked() filter.View {
	return filter.Derive(c.store.All(), c.searchTerm, c.currentPage, c.itemsPerPage)
}

func (c *Catalog) viewLocked() View {
	derived := c.deriveLocked()
	return View{
		PageSlice:    derived.PageSlice,
		TotalPages:   derived.TotalPages,
		CurrentPage:  c.currentPage,
		ItemsPerPage: c.itemsPerPage,
		TotalMatches: len(derived.Filtered),
		SearchTerm:   c.searchTerm,
		ViewType:     c.viewType,
		Form:         c.formLocked(),
	}
}

func (c *Catalog) formLocked() FormState {
	state := FormState{Open: c.formOpen}
	if !c.formOpen || c.editingID == 0 {
		return state
	}
	if p, ok := c.store.FindByID(c.editingID); ok {
		values := validation.FormFrom(p)
		state.Editing = &p
		state.Values = &values
	}
	return state
}

// changedLocked derives the new view and hands it to the OnChange hook.
func (c *Catalog) changedLocked() View {
	v := c.viewLocked()
	if c.onChange != nil {
		c.onChange(v)
	}
	return v
}
