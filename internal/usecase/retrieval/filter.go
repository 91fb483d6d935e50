package retrieval

import (
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// Filter keeps the products that satisfy every hard constraint of p, in
// input order. It never mutates its input.
func Filter(products []product.Product, p plan.Plan) []product.Product {
	out := make([]product.Product, 0, len(products))
	for _, prod := range products {
		if admits(p, prod) {
			out = append(out, prod)
		}
	}
	return out
}

func admits(p plan.Plan, prod product.Product) bool {
	if p.HasBudget() {
		price, ok := prod.Price()
		// An unknown price cannot be shown to be in range.
		if !ok {
			return false
		}
		if p.BudgetFloor != nil && price < *p.BudgetFloor {
			return false
		}
		if p.BudgetCeiling != nil && price > *p.BudgetCeiling {
			return false
		}
	}
	if !prod.Tags().ContainsAll(p.RequiredFeatures) {
		return false
	}
	if p.Excludes(prod.Category()) {
		return false
	}
	return prod.ReviewCount() >= p.MinReviews
}
