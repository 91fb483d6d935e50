package retrieval

import (
	"testing"

	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

type fixture struct {
	id       string
	cents    int64 // 0 means unknown price
	tags     []string
	category string
	// stars per review; empty means no reviews
	stars []int
}

func (f fixture) build(t *testing.T) product.Product {
	t.Helper()
	var h product.Histogram
	for _, s := range f.stars {
		h.Add(s)
	}
	params := product.Params{
		ID:          f.id,
		Title:       "Headphones " + f.id,
		Category:    f.category,
		Tags:        feature.NewSet(f.tags...),
		ReviewCount: h.Total(),
		Histogram:   h,
	}
	if f.cents > 0 {
		p := product.Price(f.cents)
		params.Price = &p
	}
	if mean, ok := h.Mean(); ok {
		params.AvgRating = &mean
	}
	p, err := product.New(params)
	if err != nil {
		t.Fatalf("product.New(%s): %v", f.id, err)
	}
	return p
}

func buildAll(t *testing.T, fs ...fixture) []product.Product {
	t.Helper()
	out := make([]product.Product, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.build(t))
	}
	return out
}

// repeat returns n copies of star.
func repeat(star, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = star
	}
	return out
}

func price(c int64) *product.Price {
	p := product.Price(c)
	return &p
}

func ids(ps []product.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID())
	}
	return out
}
