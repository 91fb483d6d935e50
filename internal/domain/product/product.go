package product

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
)

// RatingTolerance bounds the gap between the stored average rating and the
// histogram-weighted mean.
const RatingTolerance = 0.01

// Product is an aggregated catalog entry: metadata plus review statistics.
type Product struct {
	id          string
	title       string
	category    string
	price       Price
	hasPrice    bool
	tags        feature.Set
	reviewCount int
	avgRating   float64
	histogram   Histogram
	pros        []string
	cons        []string
	store       string
	imageURL    string
}

// Params carries the fields for New.
type Params struct {
	ID          string
	Title       string
	Category    string
	Price       *Price
	Tags        feature.Set
	ReviewCount int
	AvgRating   *float64
	Histogram   Histogram
	Pros        []string
	Cons        []string
	Store       string
	ImageURL    string
}

// New validates p and builds a Product. The histogram must sum to the review
// count, and the average rating must be present exactly when there are
// reviews and agree with the histogram mean.
func New(p Params) (Product, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: id is required", domain.ErrInvalidProduct)
	}
	if p.Price != nil && *p.Price < 0 {
		return Product{}, fmt.Errorf("%w: %s: negative price", domain.ErrInvalidProduct, id)
	}
	if p.ReviewCount < 0 {
		return Product{}, fmt.Errorf("%w: %s: negative review count", domain.ErrInvalidProduct, id)
	}
	for i, c := range p.Histogram {
		if c < 0 {
			return Product{}, fmt.Errorf("%w: %s: negative count for %d stars", domain.ErrInvalidProduct, id, i+1)
		}
	}
	if total := p.Histogram.Total(); total != p.ReviewCount {
		return Product{}, fmt.Errorf("%w: %s: histogram sums to %d, review count is %d",
			domain.ErrInvalidProduct, id, total, p.ReviewCount)
	}

	prod := Product{
		id:          id,
		title:       strings.TrimSpace(p.Title),
		category:    strings.TrimSpace(p.Category),
		tags:        p.Tags,
		reviewCount: p.ReviewCount,
		histogram:   p.Histogram,
		pros:        cloneStrings(p.Pros),
		cons:        cloneStrings(p.Cons),
		store:       p.Store,
		imageURL:    p.ImageURL,
	}
	if p.Price != nil {
		prod.price = *p.Price
		prod.hasPrice = true
	}

	switch {
	case p.ReviewCount == 0 && p.AvgRating != nil:
		return Product{}, fmt.Errorf("%w: %s: average rating without reviews", domain.ErrInvalidProduct, id)
	case p.ReviewCount > 0 && p.AvgRating == nil:
		return Product{}, fmt.Errorf("%w: %s: missing average rating", domain.ErrInvalidProduct, id)
	case p.ReviewCount > 0:
		avg := *p.AvgRating
		mean, _ := p.Histogram.Mean()
		if math.IsNaN(avg) || avg < 0 || avg > 5 {
			return Product{}, fmt.Errorf("%w: %s: average rating %v out of range", domain.ErrInvalidProduct, id, avg)
		}
		if math.Abs(mean-avg) > RatingTolerance {
			return Product{}, fmt.Errorf("%w: %s: average rating %.3f disagrees with histogram mean %.3f",
				domain.ErrInvalidProduct, id, avg, mean)
		}
		prod.avgRating = avg
	}

	return prod, nil
}

// ID returns the product identifier (parent ASIN).
func (p Product) ID() string { return p.id }

// Title returns the product title.
func (p Product) Title() string { return p.title }

// Category returns the leaf catalog category.
func (p Product) Category() string { return p.category }

// Price returns the price and whether it is known.
func (p Product) Price() (Price, bool) { return p.price, p.hasPrice }

// Tags returns the normalized feature tags.
func (p Product) Tags() feature.Set { return p.tags }

// ReviewCount returns the number of aggregated reviews.
func (p Product) ReviewCount() int { return p.reviewCount }

// AvgRating returns the mean rating, undefined when there are no reviews.
func (p Product) AvgRating() (float64, bool) { return p.avgRating, p.reviewCount > 0 }

// Histogram returns the rating histogram.
func (p Product) Histogram() Histogram { return p.histogram }

// Pros returns the top positive phrases, most supported first.
func (p Product) Pros() []string { return cloneStrings(p.pros) }

// Cons returns the top negative phrases, most supported first.
func (p Product) Cons() []string { return cloneStrings(p.cons) }

// Store returns the seller or brand store name.
func (p Product) Store() string { return p.store }

// ImageURL returns the primary product image.
func (p Product) ImageURL() string { return p.imageURL }

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
