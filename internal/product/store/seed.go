package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//go:embed default_products.json
var defaultSeed []byte

// DefaultSeed returns the product snapshot bundled with the binary.
func DefaultSeed() ([]Product, error) {
	return decodeSeed(defaultSeed)
}

// LoadSeedFile reads a JSON array of products from path.
func LoadSeedFile(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
	}
	defer f.Close()

	return LoadSeed(f)
}

// LoadSeed reads a JSON array of products from r.
// IDs must be positive and pairwise distinct.
func LoadSeed(r io.Reader) ([]Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return decodeSeed(data)
}

func decodeSeed(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	seen := make(map[int]struct{}, len(products))
	for _, p := range products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("seed product %q has non-positive id %d", p.Name, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("seed contains duplicate id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return products, nil
}
