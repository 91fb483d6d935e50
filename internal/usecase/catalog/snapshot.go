// Package catalog loads the product index into immutable in-memory
// snapshots and swaps them atomically on reload.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// Snapshot is one loaded index. It is never mutated after construction, so
// any number of goroutines may read it while a newer snapshot replaces it.
type Snapshot struct {
	products   []product.Product
	byID       map[string]int
	categories map[string]int
	buildID    string
	path       string
	loadedAt   time.Time
}

// NewSnapshot builds a snapshot over a copy of products.
func NewSnapshot(products []product.Product, buildID, path string, loadedAt time.Time) *Snapshot {
	products = append([]product.Product(nil), products...)
	sort.Slice(products, func(i, j int) bool { return products[i].ID() < products[j].ID() })

	s := &Snapshot{
		products:   products,
		byID:       make(map[string]int, len(products)),
		categories: make(map[string]int),
		buildID:    buildID,
		path:       path,
		loadedAt:   loadedAt,
	}
	for i, p := range products {
		s.byID[p.ID()] = i
		s.categories[p.Category()]++
	}
	return s
}

// Products returns every product ordered by ID. The slice is shared and must
// not be modified.
func (s *Snapshot) Products() []product.Product { return s.products }

// Len returns the number of products.
func (s *Snapshot) Len() int { return len(s.products) }

// BuildID returns the manifest build id, or "" when the index had no manifest.
func (s *Snapshot) BuildID() string { return s.buildID }

// Path returns the file the snapshot was loaded from.
func (s *Snapshot) Path() string { return s.path }

// LoadedAt returns the load time.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Get returns the product with id.
func (s *Snapshot) Get(id string) (product.Product, error) {
	i, ok := s.byID[id]
	if !ok {
		return product.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return s.products[i], nil
}

// Categories returns a copy of the per-category product counts.
func (s *Snapshot) Categories() map[string]int {
	out := make(map[string]int, len(s.categories))
	for k, v := range s.categories {
		out[k] = v
	}
	return out
}

// Page lists products ordered by ID, starting after the cursor id. category
// filters case-insensitively when non-empty. next is "" on the last page.
func (s *Snapshot) Page(category, cursor string, limit int) (items []product.Product, next string) {
	if limit <= 0 {
		return nil, ""
	}
	start := sort.Search(len(s.products), func(i int) bool { return s.products[i].ID() > cursor })
	for i := start; i < len(s.products); i++ {
		p := s.products[i]
		if category != "" && !strings.EqualFold(p.Category(), category) {
			continue
		}
		if len(items) == limit {
			return items, items[len(items)-1].ID()
		}
		items = append(items, p)
	}
	return items, ""
}
