package chi

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

func turnsFromAPI(turns []Turn) []llm.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]llm.Turn, len(turns))
	for i, t := range turns {
		out[i] = llm.Turn{Role: llm.Role(t.Role), Content: t.Content}
	}
	return out
}

// planFromAPI converts a wire plan. Unknown feature tags are rejected here;
// budget ordering is left to plan.Validate so it maps to invalid_plan.
func planFromAPI(p Plan) (plan.Plan, error) {
	out := plan.Plan{
		UseCase:            plan.UseCase(p.UseCase),
		MinReviews:         p.MinReviews,
		ExcludedCategories: p.ExcludedCategories,
		Notes:              p.Notes,
	}

	var err error
	if out.BudgetCeiling, err = priceFromAPI("budget_ceiling", p.BudgetCeiling); err != nil {
		return plan.Plan{}, err
	}
	if out.BudgetFloor, err = priceFromAPI("budget_floor", p.BudgetFloor); err != nil {
		return plan.Plan{}, err
	}
	if out.BudgetTarget, err = priceFromAPI("budget_target", p.BudgetTarget); err != nil {
		return plan.Plan{}, err
	}

	if out.RequiredFeatures, err = featuresFromAPI("required_features", p.RequiredFeatures); err != nil {
		return plan.Plan{}, err
	}
	if out.PreferredFeatures, err = featuresFromAPI("preferred_features", p.PreferredFeatures); err != nil {
		return plan.Plan{}, err
	}

	if len(p.Weights) > 0 {
		out.Weights = make(map[plan.Signal]float64, len(p.Weights))
		for name, w := range p.Weights {
			out.Weights[plan.Signal(name)] = w
		}
	}
	return out, nil
}

func priceFromAPI(field string, d *float64) (*product.Price, error) {
	if d == nil {
		return nil, nil
	}
	p, err := product.PriceFromDollars(*d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &p, nil
}

func featuresFromAPI(field string, tags []string) (feature.Set, error) {
	for _, t := range tags {
		if !feature.Known(t) {
			return nil, fmt.Errorf("%s: unknown feature %q", field, t)
		}
	}
	return feature.NewSet(tags...), nil
}

func planToAPI(p plan.Plan) Plan {
	out := Plan{
		BudgetCeiling:      dollars(p.BudgetCeiling),
		BudgetFloor:        dollars(p.BudgetFloor),
		BudgetTarget:       dollars(p.BudgetTarget),
		RequiredFeatures:   p.RequiredFeatures.Strings(),
		PreferredFeatures:  p.PreferredFeatures.Strings(),
		UseCase:            string(p.UseCase),
		MinReviews:         p.MinReviews,
		ExcludedCategories: p.ExcludedCategories,
		Notes:              p.Notes,
	}
	if len(p.Weights) > 0 {
		out.Weights = make(map[string]float64, len(p.Weights))
		for s, w := range p.Weights {
			out.Weights[string(s)] = w
		}
	}
	return out
}

func dollars(p *product.Price) *float64 {
	if p == nil {
		return nil
	}
	d := p.Dollars()
	return &d
}

func scoredToAPI(ranked []candidate.Scored) []ScoredProduct {
	out := make([]ScoredProduct, len(ranked))
	for i, c := range ranked {
		breakdown := make(map[string]float64, len(c.Breakdown))
		for s, v := range c.Breakdown {
			breakdown[string(s)] = v
		}
		out[i] = ScoredProduct{
			Rank:      c.Rank,
			Score:     c.Total,
			Breakdown: breakdown,
			Product:   productToAPI(c.Product),
		}
	}
	return out
}

func productToAPI(p product.Product) Product {
	out := Product{
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
		d := price.Dollars()
		out.Price = &d
	}
	if avg, ok := p.AvgRating(); ok {
		out.AvgRating = &avg
	}
	h := p.Histogram()
	for star := 1; star <= 5; star++ {
		out.Histogram[strconv.Itoa(star)] = h.Stars(star)
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Pros == nil {
		out.Pros = []string{}
	}
	if out.Cons == nil {
		out.Cons = []string{}
	}
	return out
}
