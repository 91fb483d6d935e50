package builder

import (
	"math"

	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// reviewLine is one matched review in the pass 2 intermediate file.
type reviewLine struct {
	ID      string `json:"id"`
	Star    int    `json:"star"`
	Helpful int    `json:"helpful"`
	Text    string `json:"text,omitempty"`
}

// Accumulator folds the reviews of one product. Merge is associative and
// commutative, so partial accumulators from any batch split combine into the
// same result.
type Accumulator struct {
	Histogram product.Histogram
	Pros      map[string]PhraseTally
	Cons      map[string]PhraseTally
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Pros: make(map[string]PhraseTally),
		Cons: make(map[string]PhraseTally),
	}
}

// Add folds one review. Reviews with a star outside 1..5 are ignored.
func (a *Accumulator) Add(r reviewLine) bool {
	if !a.Histogram.Add(r.Star) {
		return false
	}
	if r.Helpful < MinHelpfulVotes {
		return true
	}
	var target map[string]PhraseTally
	positive := false
	switch {
	case r.Star >= ProMinStars:
		target, positive = a.Pros, true
	case r.Star <= ConMaxStars:
		target = a.Cons
	default:
		return true
	}
	for _, p := range extractPhrases(r.Text, positive) {
		t := target[p]
		t.Support++
		t.Weight += 1 + int64(r.Helpful)
		target[p] = t
	}
	return true
}

// Merge adds other into a.
func (a *Accumulator) Merge(other *Accumulator) {
	a.Histogram.Merge(other.Histogram)
	mergeTallies(a.Pros, other.Pros)
	mergeTallies(a.Cons, other.Cons)
}

func mergeTallies(dst, src map[string]PhraseTally) {
	for p, t := range src {
		d := dst[p]
		d.Support += t.Support
		d.Weight += t.Weight
		dst[p] = d
	}
}

// Count returns the number of folded reviews.
func (a *Accumulator) Count() int { return a.Histogram.Total() }

// Mean returns the average star rounded to three decimals.
func (a *Accumulator) Mean() (float64, bool) {
	m, ok := a.Histogram.Mean()
	if !ok {
		return 0, false
	}
	return math.Round(m*1000) / 1000, true
}

// Product finalizes the accumulator into a catalog entry for meta.
func (a *Accumulator) Product(meta productMeta) (product.Product, error) {
	params := product.Params{
		ID:          meta.ID,
		Title:       meta.Title,
		Category:    meta.Category,
		Tags:        meta.Tags,
		ReviewCount: a.Count(),
		Histogram:   a.Histogram,
		Pros:        rankPhrases(a.Pros, TopPhrases),
		Cons:        rankPhrases(a.Cons, TopPhrases),
		Store:       meta.Store,
		ImageURL:    meta.ImageURL,
	}
	if meta.PriceCents != nil {
		p := product.Price(*meta.PriceCents)
		params.Price = &p
	}
	if mean, ok := a.Mean(); ok {
		params.AvgRating = &mean
	}
	return product.New(params)
}
