package artifact

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// SchemaVersion is written into every index record. Readers accept records
// up to this version.
const SchemaVersion = 1

// record is the on-disk form of one aggregated product. Prices are integer
// cents; a null price means unknown, a null avg_rating means no reviews.
type record struct {
	Schema      int            `json:"schema"`
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	PriceCents  *int64         `json:"price_cents"`
	Tags        []string       `json:"tags"`
	ReviewCount int            `json:"review_count"`
	AvgRating   *float64       `json:"avg_rating"`
	Histogram   map[string]int `json:"rating_histogram"`
	Pros        []string       `json:"pros"`
	Cons        []string       `json:"cons"`
	Store       string         `json:"store,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
}

func toRecord(p product.Product) record {
	r := record{
		Schema:      SchemaVersion,
		ID:          p.ID(),
		Title:       p.Title(),
		Category:    p.Category(),
		Tags:        p.Tags().Strings(),
		ReviewCount: p.ReviewCount(),
		Histogram:   make(map[string]int, 5),
		Pros:        p.Pros(),
		Cons:        p.Cons(),
		Store:       p.Store(),
		ImageURL:    p.ImageURL(),
	}
	if price, ok := p.Price(); ok {
		c := int64(price)
		r.PriceCents = &c
	}
	if avg, ok := p.AvgRating(); ok {
		r.AvgRating = &avg
	}
	h := p.Histogram()
	for star := 1; star <= 5; star++ {
		r.Histogram[strconv.Itoa(star)] = h.Stars(star)
	}
	return r
}

func (r record) toDomain() (product.Product, error) {
	if r.Schema < 1 || r.Schema > SchemaVersion {
		return product.Product{}, fmt.Errorf("unsupported schema version %d", r.Schema)
	}

	var h product.Histogram
	for k, n := range r.Histogram {
		star, err := strconv.Atoi(k)
		if err != nil || star < 1 || star > 5 {
			return product.Product{}, fmt.Errorf("bad histogram bucket %q", k)
		}
		h[star-1] = n
	}

	params := product.Params{
		ID:          r.ID,
		Title:       r.Title,
		Category:    r.Category,
		Tags:        feature.NewSet(r.Tags...),
		ReviewCount: r.ReviewCount,
		AvgRating:   r.AvgRating,
		Histogram:   h,
		Pros:        r.Pros,
		Cons:        r.Cons,
		Store:       r.Store,
		ImageURL:    r.ImageURL,
	}
	if r.PriceCents != nil {
		price := product.Price(*r.PriceCents)
		params.Price = &price
	}

	p, err := product.New(params)
	if err != nil {
		return product.Product{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return p, nil
}
