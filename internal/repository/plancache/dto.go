package plancache

import (
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// cacheVersion is bumped whenever planDTO changes shape; stale entries then miss.
const cacheVersion = 1

// planDTO is the cached form of a plan.Plan. Prices are stored in cents.
type planDTO struct {
	Version            int                `json:"v"`
	BudgetCeiling      *int64             `json:"budget_ceiling,omitempty"`
	BudgetFloor        *int64             `json:"budget_floor,omitempty"`
	BudgetTarget       *int64             `json:"budget_target,omitempty"`
	RequiredFeatures   []string           `json:"required_features,omitempty"`
	PreferredFeatures  []string           `json:"preferred_features,omitempty"`
	UseCase            string             `json:"use_case,omitempty"`
	Weights            map[string]float64 `json:"weights,omitempty"`
	MinReviews         int                `json:"min_reviews,omitempty"`
	ExcludedCategories []string           `json:"excluded_categories,omitempty"`
	Notes              string             `json:"notes,omitempty"`
}

func toDTO(p plan.Plan) planDTO {
	d := planDTO{
		Version:            cacheVersion,
		BudgetCeiling:      centsPtr(p.BudgetCeiling),
		BudgetFloor:        centsPtr(p.BudgetFloor),
		BudgetTarget:       centsPtr(p.BudgetTarget),
		RequiredFeatures:   p.RequiredFeatures.Strings(),
		PreferredFeatures:  p.PreferredFeatures.Strings(),
		UseCase:            string(p.UseCase),
		MinReviews:         p.MinReviews,
		ExcludedCategories: p.ExcludedCategories,
		Notes:              p.Notes,
	}
	if len(p.Weights) > 0 {
		d.Weights = make(map[string]float64, len(p.Weights))
		for s, w := range p.Weights {
			d.Weights[string(s)] = w
		}
	}
	return d
}

func (d planDTO) toDomain() plan.Plan {
	p := plan.Plan{
		BudgetCeiling:      pricePtr(d.BudgetCeiling),
		BudgetFloor:        pricePtr(d.BudgetFloor),
		BudgetTarget:       pricePtr(d.BudgetTarget),
		RequiredFeatures:   feature.NewSet(d.RequiredFeatures...),
		PreferredFeatures:  feature.NewSet(d.PreferredFeatures...),
		UseCase:            plan.UseCase(d.UseCase),
		MinReviews:         d.MinReviews,
		ExcludedCategories: d.ExcludedCategories,
		Notes:              d.Notes,
	}
	if len(d.Weights) > 0 {
		p.Weights = make(map[plan.Signal]float64, len(d.Weights))
		for s, w := range d.Weights {
			p.Weights[plan.Signal(s)] = w
		}
	}
	return p
}

func centsPtr(p *product.Price) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

func pricePtr(c *int64) *product.Price {
	if c == nil {
		return nil
	}
	v := product.Price(*c)
	return &v
}
