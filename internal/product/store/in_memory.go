package store

import (
	"slices"
	"sync"
)

var _ ProductStore = (*InMemory)(nil)

// InMemory implements ProductStore using an ordered slice.
// Order is insertion order and is never changed by updates.
type InMemory struct {
	mu       sync.RWMutex
	products []Product
}

// NewInMemoryStore creates a new store holding a copy of seed.
func NewInMemoryStore(seed []Product) *InMemory {
	return &InMemory{
		products: slices.Clone(seed),
	}
}

// All retrieves all products.
func (s *InMemory) All() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, len(s.products))
	copy(list, s.products)
	return list
}

// FindByID retrieves a product by its ID.
func (s *InMemory) FindByID(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, false
	}
	return s.products[i], true
}

// Create creates a new product and returns it.
// The ID is one more than the highest ID currently stored, so the ID of a
// deleted highest product is handed out again.
func (s *InMemory) Create(fields Fields) Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := Product{
		ID:          s.nextID(),
		Name:        fields.Name,
		Price:       fields.Price,
		Category:    fields.Category,
		Stock:       fields.Stock,
		Description: fields.Description,
	}
	s.products = append(s.products, product)

	return product
}

// Update merges patch over an existing product.
func (s *InMemory) Update(id int, patch Patch) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, false
	}
	s.products[i] = s.products[i].apply(patch)
	return s.products[i], true
}

// Delete deletes a product by its ID.
func (s *InMemory) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.products = slices.Delete(s.products, i, i+1)
	return true
}

// Len returns the number of products.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// nextID must be called with the write lock held.
func (s *InMemory) nextID() int {
	highest := 0
	for _, p := range s.products {
		highest = max(highest, p.ID)
	}
	return highest + 1
}

func (s *InMemory) indexOf(id int) int {
	return slices.IndexFunc(s.products, func(p Product) bool { return p.ID == id })
}
