// Package plan defines the structured query plan consumed by retrieval.
package plan

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// Plan is the structured intent for one retrieval call. Nil budget bounds
// mean unbounded on that side. Do not mutate a Plan once it is handed to
// the retriever.
type Plan struct {
	BudgetCeiling *product.Price
	BudgetFloor   *product.Price
	// BudgetTarget is the price the budget-fit signal aims for. Defaults to the ceiling.
	BudgetTarget *product.Price

	RequiredFeatures  feature.Set
	PreferredFeatures feature.Set
	UseCase           UseCase

	// Weights overrides individual entries of DefaultWeights.
	Weights map[Signal]float64

	MinReviews         int
	ExcludedCategories []string
	Notes              string
}

// Validate rejects plans that cannot be evaluated.
func (p Plan) Validate() error {
	if p.BudgetFloor != nil && p.BudgetCeiling != nil && *p.BudgetFloor > *p.BudgetCeiling {
		return fmt.Errorf("%w: budget floor %s exceeds ceiling %s",
			domain.ErrInvalidPlan, *p.BudgetFloor, *p.BudgetCeiling)
	}
	for name, b := range map[string]*product.Price{
		"ceiling": p.BudgetCeiling, "floor": p.BudgetFloor, "target": p.BudgetTarget,
	} {
		if b != nil && *b < 0 {
			return fmt.Errorf("%w: negative budget %s", domain.ErrInvalidPlan, name)
		}
	}
	if p.MinReviews < 0 {
		return fmt.Errorf("%w: min reviews must be >= 0, got %d", domain.ErrInvalidPlan, p.MinReviews)
	}
	if _, err := ParseUseCase(string(p.UseCase)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidPlan, err)
	}
	for sig, w := range p.Weights {
		if _, ok := ParseSignal(string(sig)); !ok {
			return fmt.Errorf("%w: unknown signal %q", domain.ErrInvalidPlan, sig)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight for %s must be a non-negative number", domain.ErrInvalidPlan, sig)
		}
	}
	return nil
}

// Weight returns the effective weight of s.
func (p Plan) Weight(s Signal) float64 {
	if w, ok := p.Weights[s]; ok {
		return w
	}
	return DefaultWeights()[s]
}

// Target returns the budget-fit reference price, falling back to the ceiling.
func (p Plan) Target() (product.Price, bool) {
	if p.BudgetTarget != nil && *p.BudgetTarget > 0 {
		return *p.BudgetTarget, true
	}
	if p.BudgetCeiling != nil && *p.BudgetCeiling > 0 {
		return *p.BudgetCeiling, true
	}
	return 0, false
}

// HasBudget reports whether either price bound is set.
func (p Plan) HasBudget() bool {
	return p.BudgetCeiling != nil || p.BudgetFloor != nil
}

// Excludes reports whether category is excluded by the use case or the plan.
func (p Plan) Excludes(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return false
	}
	for _, ex := range p.UseCase.Profile().ExcludedCategories {
		if ex == c {
			return true
		}
	}
	for _, ex := range p.ExcludedCategories {
		if strings.ToLower(strings.TrimSpace(ex)) == c {
			return true
		}
	}
	return false
}
