package retrieval

import (
	"math"
	"sort"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// DefaultTopK is the result count used when the caller asks for none.
const DefaultTopK = 5

const (
	// ratingPrior damps the rating signal for products with few reviews.
	ratingPrior = 20
	// overBudgetSlope is how fast budget fit decays above the target price.
	overBudgetSlope = 1.2
	// popularityDecades is the log10 review count that saturates popularity.
	popularityDecades = 4
)

// Scorer ranks filtered candidates.
type Scorer struct {
	defaultK int
}

// NewScorer creates a Scorer. A non-positive defaultK falls back to DefaultTopK.
func NewScorer(defaultK int) *Scorer {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	return &Scorer{defaultK: defaultK}
}

// Limit resolves the requested result count. Any positive k is honored.
func (s *Scorer) Limit(k int) int {
	if k <= 0 {
		return s.defaultK
	}
	return k
}

// Rank scores every candidate and returns the best k, ordered by total
// score, then review count (both descending), then product ID.
func (s *Scorer) Rank(candidates []product.Product, p plan.Plan, k int) []candidate.Scored {
	k = s.Limit(k)

	weights := make(map[plan.Signal]float64, len(plan.Signals))
	for _, sig := range plan.Signals {
		weights[sig] = p.Weight(sig)
	}

	scored := make([]candidate.Scored, 0, len(candidates))
	for _, prod := range candidates {
		breakdown := make(map[plan.Signal]float64, len(plan.Signals))
		total := 0.0
		for _, sig := range plan.Signals {
			contrib := weights[sig] * signal(sig, prod, p)
			breakdown[sig] = contrib
			total += contrib
		}
		scored = append(scored, candidate.Scored{Product: prod, Total: total, Breakdown: breakdown})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Product.ReviewCount() != b.Product.ReviewCount() {
			return a.Product.ReviewCount() > b.Product.ReviewCount()
		}
		return a.Product.ID() < b.Product.ID()
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

func signal(sig plan.Signal, prod product.Product, p plan.Plan) float64 {
	switch sig {
	case plan.SignalBudgetFit:
		return budgetFit(prod, p)
	case plan.SignalRating:
		return ratingScore(prod)
	case plan.SignalFeatureMatch:
		return featureMatch(prod, p)
	case plan.SignalUseCase:
		return useCaseMatch(prod, p)
	case plan.SignalPopularity:
		return popularity(prod)
	default:
		return 0
	}
}

// budgetFit rewards prices close to and under the target. Prices below the
// target lose a little, prices above it lose linearly.
func budgetFit(prod product.Product, p plan.Plan) float64 {
	price, ok := prod.Price()
	if !ok {
		return 0
	}
	target, ok := p.Target()
	if !ok {
		return 1
	}
	rel := float64(price) / float64(target)
	if rel <= 1 {
		return clamp01(1 - (1-rel)*(1-rel))
	}
	return clamp01(1 - overBudgetSlope*(rel-1))
}

func ratingScore(prod product.Product) float64 {
	avg, ok := prod.AvgRating()
	if !ok {
		return 0
	}
	n := float64(prod.ReviewCount())
	return clamp01((avg - 1) / 4 * n / (n + ratingPrior))
}

func featureMatch(prod product.Product, p plan.Plan) float64 {
	if len(p.PreferredFeatures) == 0 {
		return 0
	}
	return float64(p.PreferredFeatures.CountIn(prod.Tags())) / float64(len(p.PreferredFeatures))
}

func useCaseMatch(prod product.Product, p plan.Plan) float64 {
	tags := p.UseCase.Profile().Tags
	if len(tags) == 0 {
		return 0
	}
	matched := tags.CountIn(prod.Tags())
	if matched == 0 {
		return 0
	}
	return 0.5 + 0.5*float64(matched)/float64(len(tags))
}

func popularity(prod product.Product) float64 {
	return math.Min(1, math.Log10(float64(prod.ReviewCount())+1)/popularityDecades)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
