package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/catalog/internal/debounce"
	producterrors "github.com/abgdnv/catalog/internal/product/errors"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, seed []store.Product, opts Options) *Catalog {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	c := NewCatalog(store.NewInMemoryStore(seed), logger, opts)
	t.Cleanup(c.Close)
	return c
}

func seedOf(n int) []store.Product {
	products := make([]store.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, store.Product{
			ID:       i,
			Name:     "Item " + strconv.Itoa(i),
			Price:    float64(i * 100),
			Category: "Books",
			Stock:    i,
		})
	}
	return products
}

func validForm(name string) validation.ProductForm {
	return validation.ProductForm{Name: validation.FormValue(name), Price: "10", Category: "Books", Stock: "2"}
}

func ids(products []store.Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func Test_Catalog_InitialView(t *testing.T) {
	// given
	c := newTestCatalog(t, seedOf(12), Options{})

	// when
	v := c.View(context.Background())

	// then
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 5, v.ItemsPerPage)
	assert.Equal(t, 12, v.TotalMatches)
	assert.Equal(t, ViewTable, v.ViewType)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(v.PageSlice))
	assert.False(t, v.Form.Open)
}

func Test_Catalog_CreateDeleteReusesID(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, []store.Product{
		{ID: 1, Name: "Mouse", Price: 10, Category: "Electronics"},
		{ID: 3, Name: "Desk", Price: 20, Category: "Furniture"},
	}, Options{})

	// when
	created, applied, err := c.SaveProduct(ctx, validForm("Lamp"), 0)

	// then
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 4, created.ID)
	assert.Equal(t, []int{1, 3, 4}, ids(c.Products(ctx)))

	// when
	deleted := c.DeleteProduct(ctx, 4)
	again, _, err := c.SaveProduct(ctx, validForm("Lamp"), 0)

	// then
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 4, again.ID)
}

func Test_Catalog_SaveProduct(t *testing.T) {
	testCases := []struct {
		name          string
		form          validation.ProductForm
		editingID     int
		expectApplied bool
		expectFields  map[string]string
		expectIDs     []int
	}{
		{
			name:          "Success - create appends",
			form:          validForm("New"),
			expectApplied: true,
			expectIDs:     []int{1, 2, 3},
		},
		{
			name:          "Success - update keeps position",
			form:          validForm("Renamed"),
			editingID:     1,
			expectApplied: true,
			expectIDs:     []int{1, 2},
		},
		{
			name:      "Absorbed - update of unknown ID",
			form:      validForm("Ghost"),
			editingID: 99,
			expectIDs: []int{1, 2},
		},
		{
			name: "Error - invalid form",
			form: validation.ProductForm{Price: "-5", Stock: "-1"},
			expectFields: map[string]string{
				"name":     validation.MsgNameRequired,
				"price":    validation.MsgPriceInvalid,
				"category": validation.MsgCategoryRequired,
				"stock":    validation.MsgStockNegative,
			},
			expectIDs: []int{1, 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			c := newTestCatalog(t, seedOf(2), Options{})

			// when
			product, applied, err := c.SaveProduct(ctx, tc.form, tc.editingID)

			// then
			assert.Equal(t, tc.expectApplied, applied)
			assert.Equal(t, tc.expectIDs, ids(c.Products(ctx)))
			if tc.expectFields != nil {
				verr, ok := producterrors.AsValidationError(err)
				require.True(t, ok)
				assert.Equal(t, tc.expectFields, verr.Fields)
				return
			}
			require.NoError(t, err)
			if tc.expectApplied {
				assert.Equal(t, string(tc.form.Name), product.Name)
			}
		})
	}
}

func Test_Catalog_Update_MergesFields(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, []store.Product{
		{ID: 7, Name: "Old", Price: 1, Category: "Books", Stock: 3, Description: "d"},
	}, Options{})

	// when
	updated, applied, err := c.SaveProduct(ctx, validation.ProductForm{
		Name: "New", Price: "2.5", Category: "Kitchen", Stock: "", Description: "e",
	}, 7)

	// then
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, store.Product{ID: 7, Name: "New", Price: 2.5, Category: "Kitchen", Stock: 0, Description: "e"}, updated)
}

func Test_Catalog_SearchChanged(t *testing.T) {
	// given
	ctx := context.Background()
	seed := seedOf(12)
	seed[10].Name = "Blue Lamp"
	c := newTestCatalog(t, seed, Options{})
	c.ChangePage(ctx, 3)

	// when
	v := c.SearchChanged(ctx, "lamp")

	// then
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, []int{11}, ids(v.PageSlice))
	assert.Equal(t, "lamp", v.SearchTerm)
}

func Test_Catalog_SearchChanged_SameTermKeepsPage(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(12), Options{})
	c.SearchChanged(ctx, "item")
	c.ChangePage(ctx, 2)

	// when
	v := c.SearchChanged(ctx, "item")

	// then
	assert.Equal(t, 2, v.CurrentPage)
}

func Test_Catalog_SearchInput_Debounced(t *testing.T) {
	// given
	ctx := context.Background()
	clock := debounce.NewManualClock()
	c := newTestCatalog(t, seedOf(12), Options{Clock: clock})
	c.ChangePage(ctx, 2)

	// when
	c.SearchInput(ctx, "i")
	clock.Advance(100 * time.Millisecond)
	c.SearchInput(ctx, "it")
	clock.Advance(100 * time.Millisecond)
	c.SearchInput(ctx, "item 1")

	// then
	assert.Equal(t, "", c.View(ctx).SearchTerm)
	assert.Equal(t, 2, c.View(ctx).CurrentPage)

	// when
	clock.Advance(500 * time.Millisecond)

	// then
	v := c.View(ctx)
	assert.Equal(t, "item 1", v.SearchTerm)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, []int{1, 10, 11, 12}, ids(v.PageSlice))
}

func Test_Catalog_SearchChanged_DropsPendingDebouncedTerm(t *testing.T) {
	// given
	ctx := context.Background()
	clock := debounce.NewManualClock()
	c := newTestCatalog(t, seedOf(12), Options{Clock: clock})
	c.SearchInput(ctx, "item")

	// when
	c.SearchChanged(ctx, "item 1")
	clock.Advance(600 * time.Millisecond)

	// then
	v := c.View(ctx)
	assert.Equal(t, "item 1", v.SearchTerm)
	assert.Equal(t, []int{1, 10, 11, 12}, ids(v.PageSlice))

	// when typing resumes
	c.SearchInput(ctx, "item 2")
	clock.Advance(500 * time.Millisecond)

	// then
	assert.Equal(t, "item 2", c.View(ctx).SearchTerm)
}

func Test_Catalog_Close_CancelsPendingSearch(t *testing.T) {
	// given
	ctx := context.Background()
	clock := debounce.NewManualClock()
	c := newTestCatalog(t, seedOf(3), Options{Clock: clock})
	c.SearchInput(ctx, "item 2")

	// when
	c.Close()
	clock.Advance(time.Second)

	// then
	assert.Equal(t, "", c.View(ctx).SearchTerm)
}

func Test_Catalog_ChangePage(t *testing.T) {
	testCases := []struct {
		name       string
		seedSize   int
		page       int
		expectPage int
	}{
		{name: "Success - within bounds", seedSize: 12, page: 3, expectPage: 3},
		{name: "Ignored - zero", seedSize: 12, page: 0, expectPage: 1},
		{name: "Ignored - past last page", seedSize: 12, page: 4, expectPage: 1},
		{name: "Success - page 1 of empty catalog", seedSize: 0, page: 1, expectPage: 1},
		{name: "Ignored - page 2 of empty catalog", seedSize: 0, page: 2, expectPage: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := newTestCatalog(t, seedOf(tc.seedSize), Options{})

			// when
			v := c.ChangePage(context.Background(), tc.page)

			// then
			assert.Equal(t, tc.expectPage, v.CurrentPage)
		})
	}
}

func Test_Catalog_DeleteLastItemOfPage_KeepsPage(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(6), Options{})
	c.ChangePage(ctx, 2)

	// when
	deleted := c.DeleteProduct(ctx, 6)
	v := c.View(ctx)

	// then
	assert.True(t, deleted)
	assert.Equal(t, 2, v.CurrentPage)
	assert.Equal(t, 1, v.TotalPages)
	assert.Empty(t, v.PageSlice)
}

func Test_Catalog_DeleteProduct_UnknownID(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(2), Options{})

	// when
	deleted := c.DeleteProduct(ctx, 42)

	// then
	assert.False(t, deleted)
	assert.Equal(t, []int{1, 2}, ids(c.Products(ctx)))
}

func Test_Catalog_SetViewType(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(2), Options{})

	// when
	v, err := c.SetViewType(ctx, ViewCard)

	// then
	require.NoError(t, err)
	assert.Equal(t, ViewCard, v.ViewType)

	// when
	_, err = c.SetViewType(ctx, "grid")

	// then
	require.ErrorIs(t, err, producterrors.ErrInvalidViewType)
	assert.Equal(t, ViewCard, c.View(ctx).ViewType)
}

func Test_Catalog_FormLifecycle(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(2), Options{})

	// when
	state, err := c.EditRequest(ctx, 2)

	// then
	require.NoError(t, err)
	assert.True(t, state.Open)
	require.NotNil(t, state.Editing)
	assert.Equal(t, 2, state.Editing.ID)
	require.NotNil(t, state.Values)
	assert.Equal(t, validation.FormValue("200"), state.Values.Price)

	// when a rejected submit leaves the form open
	_, _, err = c.SubmitForm(ctx, validation.ProductForm{})

	// then
	require.Error(t, err)
	assert.True(t, c.View(ctx).Form.Open)

	// when
	updated, applied, err := c.SubmitForm(ctx, validForm("Edited"))

	// then
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, updated.ID)
	assert.Equal(t, FormState{}, c.View(ctx).Form)

	// when
	state = c.OpenCreateForm(ctx)
	created, _, err := c.SubmitForm(ctx, validForm("Fresh"))

	// then
	assert.Equal(t, FormState{Open: true}, state)
	require.NoError(t, err)
	assert.Equal(t, 3, created.ID)
}

func Test_Catalog_EditRequest_NotFound(t *testing.T) {
	// given
	c := newTestCatalog(t, seedOf(1), Options{})

	// when
	_, err := c.EditRequest(context.Background(), 9)

	// then
	require.ErrorIs(t, err, producterrors.ErrProductNotFound)
	assert.False(t, c.View(context.Background()).Form.Open)
}

func Test_Catalog_CancelForm(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(1), Options{})
	_, err := c.EditRequest(ctx, 1)
	require.NoError(t, err)

	// when
	state := c.CancelForm(ctx)

	// then
	assert.Equal(t, FormState{}, state)
	_, applied, err := c.SubmitForm(ctx, validForm("After cancel"))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Len(t, c.Products(ctx), 1)
}

func Test_Catalog_SubmitForm_WithoutOpenForm(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, seedOf(2), Options{})

	// when
	product, applied, err := c.SubmitForm(ctx, validation.ProductForm{})

	// then
	require.NoError(t, err, "a closed form is not validated")
	assert.False(t, applied)
	assert.Equal(t, store.Product{}, product)
	assert.Equal(t, []int{1, 2}, ids(c.Products(ctx)))
}

func Test_Catalog_OnChange(t *testing.T) {
	// given
	ctx := context.Background()
	var mu sync.Mutex
	var views []View
	c := newTestCatalog(t, seedOf(12), Options{OnChange: func(v View) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, v)
	}})

	// when
	c.ChangePage(ctx, 2)
	c.ChangePage(ctx, 9)
	c.DeleteProduct(ctx, 1)

	// then
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, views, 2)
	assert.Equal(t, 2, views[0].CurrentPage)
	assert.Equal(t, 11, views[1].TotalMatches)
}

func Test_Catalog_Options(t *testing.T) {
	// given
	c := newTestCatalog(t, seedOf(12), Options{ItemsPerPage: 4, DefaultViewType: ViewCard})

	// when
	v := c.View(context.Background())

	// then
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 4, v.ItemsPerPage)
	assert.Equal(t, ViewCard, v.ViewType)
}

func Test_Catalog_Categories_ReturnsCopy(t *testing.T) {
	// given
	c := newTestCatalog(t, nil, Options{})

	// when
	categories := c.Categories()
	categories[0] = "Changed"

	// then
	assert.Equal(t, validation.Categories, c.Categories())
}

func Test_Catalog_ConcurrentEvents(t *testing.T) {
	// given
	ctx := context.Background()
	c := newTestCatalog(t, nil, Options{})
	var wg sync.WaitGroup

	// when
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.SaveProduct(ctx, validForm("Concurrent"), 0)
			assert.NoError(t, err)
			c.SearchChanged(ctx, "concurrent")
			c.View(ctx)
		}()
	}
	wg.Wait()

	// then
	products := c.Products(ctx)
	require.Len(t, products, 20)
	seen := make(map[int]bool)
	for _, p := range products {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
}
