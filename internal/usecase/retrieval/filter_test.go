package retrieval

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
)

func filterCatalog(t *testing.T) []fixture {
	t.Helper()
	return []fixture{
		{id: "cheap", cents: 1999, tags: []string{feature.Wireless}, category: "Earbud Headphones", stars: []int{4}},
		{id: "mid", cents: 4999, tags: []string{feature.Wireless, feature.ANC}, category: "Earbud Headphones", stars: repeat(5, 3)},
		{id: "edge", cents: 5000, tags: []string{feature.Wired}, category: "On-Ear Headphones", stars: []int{3}},
		{id: "pricey", cents: 29900, tags: []string{feature.Wireless, feature.ANC}, category: "Over-Ear Headphones", stars: repeat(4, 50)},
		{id: "mystery", tags: []string{feature.Wireless}, category: "Earbud Headphones", stars: []int{5}},
	}
}

func TestFilter(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	tests := []struct {
		name string
		plan plan.Plan
		want []string
	}{
		{"no constraints keeps everything", plan.Plan{}, []string{"cheap", "mid", "edge", "pricey", "mystery"}},
		{"ceiling is inclusive", plan.Plan{BudgetCeiling: price(5000)}, []string{"cheap", "mid", "edge"}},
		{"floor is inclusive", plan.Plan{BudgetFloor: price(5000)}, []string{"edge", "pricey"}},
		{"range", plan.Plan{BudgetFloor: price(2000), BudgetCeiling: price(5000)}, []string{"mid", "edge"}},
		{"required features all match", plan.Plan{RequiredFeatures: feature.NewSet(feature.Wireless, feature.ANC)}, []string{"mid", "pricey"}},
		{"use case excludes category", plan.Plan{UseCase: plan.UseCaseGym}, []string{"cheap", "mid", "edge", "mystery"}},
		{"plan excludes category", plan.Plan{ExcludedCategories: []string{"earbud headphones"}}, []string{"edge", "pricey"}},
		{"min reviews", plan.Plan{MinReviews: 3}, []string{"mid", "pricey"}},
		{"nothing matches", plan.Plan{RequiredFeatures: feature.NewSet(feature.OpenBack)}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Filter(products, tc.plan))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Filter = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilter_UnknownPrice(t *testing.T) {
	products := buildAll(t, fixture{id: "mystery", tags: []string{feature.Wireless}, stars: []int{5}})
	if got := Filter(products, plan.Plan{BudgetFloor: price(100)}); len(got) != 0 {
		t.Error("unknown price must be excluded when a floor is set")
	}
	if got := Filter(products, plan.Plan{BudgetCeiling: price(100000)}); len(got) != 0 {
		t.Error("unknown price must be excluded when a ceiling is set")
	}
	if got := Filter(products, plan.Plan{}); len(got) != 1 {
		t.Error("unknown price must be kept without a budget")
	}
}

func TestFilter_Idempotent(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	plans := []plan.Plan{
		{},
		{BudgetCeiling: price(5000), RequiredFeatures: feature.NewSet(feature.Wireless)},
		{UseCase: plan.UseCaseGym, MinReviews: 1},
		{BudgetFloor: price(1), ExcludedCategories: []string{"On-Ear Headphones"}},
	}
	for i, p := range plans {
		once := Filter(products, p)
		twice := Filter(once, p)
		if !reflect.DeepEqual(ids(once), ids(twice)) {
			t.Errorf("plan %d: filter not idempotent: %v then %v", i, ids(once), ids(twice))
		}
	}
}

func TestFilter_CeilingProperty(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	for _, ceiling := range []int64{0, 1, 1999, 2000, 4999, 5000, 10000, 29900, 1000000} {
		for _, p := range Filter(products, plan.Plan{BudgetCeiling: price(ceiling)}) {
			got, ok := p.Price()
			if !ok {
				t.Errorf("ceiling %d: unknown price %s returned", ceiling, p.ID())
				continue
			}
			if int64(got) > ceiling {
				t.Errorf("ceiling %d: %s costs %d", ceiling, p.ID(), got)
			}
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	before := ids(products)
	_ = Filter(products, plan.Plan{BudgetCeiling: price(5000)})
	if !reflect.DeepEqual(ids(products), before) {
		t.Error("input reordered or truncated")
	}
}
