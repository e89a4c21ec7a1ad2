// Package store provides the authoritative in-memory product collection.
package store

// Product represents a product entity in the store.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	Description string  `json:"description"`
}

// Fields holds the values of a new product. The ID is always assigned by the store.
type Fields struct {
	Name        string
	Price       float64
	Category    string
	Stock       int
	Description string
}

// Patch holds the values to merge over an existing product.
// Nil fields keep the current value.
type Patch struct {
	Name        *string
	Price       *float64
	Category    *string
	Stock       *int
	Description *string
}

// PatchFrom returns a Patch that overwrites every field with the given values.
func PatchFrom(f Fields) Patch {
	return Patch{
		Name:        &f.Name,
		Price:       &f.Price,
		Category:    &f.Category,
		Stock:       &f.Stock,
		Description: &f.Description,
	}
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying collection so the catalog session can be tested with fakes.
type ProductStore interface {
	// All returns a copy of the products in insertion order.
	All() []Product

	// FindByID retrieves a single product by its unique identifier.
	// Returns false if no product exists with the given ID.
	FindByID(id int) (Product, bool)

	// Create appends a new product and returns it with its assigned ID.
	Create(fields Fields) Product

	// Update merges patch over the product with the given ID.
	// Unknown IDs are ignored and reported with false.
	Update(id int, patch Patch) (Product, bool)

	// Delete removes a product by its ID. Unknown IDs are ignored and reported with false.
	Delete(id int) bool

	// Len returns the number of stored products.
	Len() int
}

func (p Product) apply(patch Patch) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	return p
}
