package retrieval

import (
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func rankedIDs(rs []candidate.Scored) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Product.ID())
	}
	return out
}

func TestBudgetFit(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		plan  plan.Plan
		want  float64
	}{
		{"unknown price", 0, plan.Plan{BudgetCeiling: price(5000)}, 0},
		{"no budget", 5000, plan.Plan{}, 1},
		{"floor only", 5000, plan.Plan{BudgetFloor: price(1000)}, 1},
		{"at target", 5000, plan.Plan{BudgetCeiling: price(5000)}, 1},
		{"half of target", 2500, plan.Plan{BudgetCeiling: price(5000)}, 0.75},
		{"explicit target", 4000, plan.Plan{BudgetCeiling: price(8000), BudgetTarget: price(4000)}, 1},
		{"over target", 6000, plan.Plan{BudgetCeiling: price(8000), BudgetTarget: price(4000)}, 0.4},
		{"far over target", 9000, plan.Plan{BudgetTarget: price(4000)}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := fixture{id: "x", cents: tc.cents, stars: []int{4}}.build(t)
			if got := budgetFit(p, tc.plan); !near(got, tc.want) {
				t.Errorf("budgetFit = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRatingScore_ConfidenceDamping(t *testing.T) {
	lucky := fixture{id: "lucky", cents: 100, stars: []int{5}}.build(t)
	proven := fixture{id: "proven", cents: 100, stars: append(repeat(5, 3000), repeat(4, 2000)...)}.build(t)

	if ratingScore(lucky) >= ratingScore(proven) {
		t.Errorf("5.0 with one review (%v) must not beat 4.6 with 5000 (%v)", ratingScore(lucky), ratingScore(proven))
	}
	if got := ratingScore(fixture{id: "none", cents: 100}.build(t)); got != 0 {
		t.Errorf("no reviews = %v, want 0", got)
	}
	twenty := fixture{id: "twenty", cents: 100, stars: repeat(5, 20)}.build(t)
	if got := ratingScore(twenty); !near(got, 0.5) {
		t.Errorf("5.0 with 20 reviews = %v, want 0.5", got)
	}
}

func TestFeatureAndUseCaseSignals(t *testing.T) {
	p := fixture{id: "x", cents: 100, tags: []string{feature.Microphone, feature.Wireless}, stars: []int{4}}.build(t)

	pl := plan.Plan{PreferredFeatures: feature.NewSet(feature.Microphone, feature.ANC)}
	if got := featureMatch(p, pl); !near(got, 0.5) {
		t.Errorf("featureMatch = %v, want 0.5", got)
	}
	if got := featureMatch(p, plan.Plan{}); got != 0 {
		t.Errorf("no preferred features = %v, want 0", got)
	}

	if got := useCaseMatch(p, plan.Plan{UseCase: plan.UseCaseGaming}); !near(got, 0.5+0.5/3) {
		t.Errorf("gaming use case = %v", got)
	}
	if got := useCaseMatch(p, plan.Plan{UseCase: plan.UseCaseGym}); got != 0 {
		t.Errorf("no associated tag present = %v, want 0", got)
	}
	if got := useCaseMatch(p, plan.Plan{UseCase: plan.UseCaseGeneral}); got != 0 {
		t.Errorf("general use case = %v, want 0", got)
	}
}

func TestPopularity(t *testing.T) {
	if got := popularity(fixture{id: "x", cents: 1, stars: repeat(4, 9)}.build(t)); !near(got, 0.25) {
		t.Errorf("9 reviews = %v, want 0.25", got)
	}
	if got := popularity(fixture{id: "y", cents: 1, stars: repeat(4, 20000)}.build(t)); got != 1 {
		t.Errorf("popularity saturates at 1, got %v", got)
	}
}

func TestRank_BreakdownSumsToTotal(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	p := plan.Plan{
		BudgetCeiling:     price(30000),
		PreferredFeatures: feature.NewSet(feature.ANC),
		UseCase:           plan.UseCaseCommute,
		Weights:           map[plan.Signal]float64{plan.SignalRating: 0.5},
	}
	for _, r := range NewScorer(0).Rank(products, p, 10) {
		sum := 0.0
		for _, sig := range plan.Signals {
			v, ok := r.Breakdown[sig]
			if !ok {
				t.Errorf("%s: breakdown missing %s", r.Product.ID(), sig)
			}
			sum += v
		}
		if !near(sum, r.Total) {
			t.Errorf("%s: breakdown sums to %v, total %v", r.Product.ID(), sum, r.Total)
		}
	}
}

func TestRank_TieBreak(t *testing.T) {
	products := buildAll(t,
		fixture{id: "c", cents: 1000, stars: []int{4}},
		fixture{id: "a", cents: 1000, stars: []int{4}},
		fixture{id: "b", cents: 1000, stars: repeat(4, 5)},
	)
	// Only budget fit counts, and without a budget it is 1 for everyone.
	p := plan.Plan{Weights: map[plan.Signal]float64{
		plan.SignalRating: 0, plan.SignalFeatureMatch: 0, plan.SignalUseCase: 0, plan.SignalPopularity: 0,
	}}
	got := NewScorer(0).Rank(products, p, 3)
	if !reflect.DeepEqual(rankedIDs(got), []string{"b", "a", "c"}) {
		t.Fatalf("order = %v, want [b a c]", rankedIDs(got))
	}
	for i, r := range got {
		if r.Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", r.Product.ID(), r.Rank, i+1)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	products := buildAll(t, filterCatalog(t)...)
	p := plan.Plan{PreferredFeatures: feature.NewSet(feature.ANC), UseCase: plan.UseCaseCommute}
	s := NewScorer(0)
	first := s.Rank(products, p, 5)

	reversed := make([]int, 0, len(products))
	for i := len(products) - 1; i >= 0; i-- {
		reversed = append(reversed, i)
	}
	shuffled := buildAll(t, filterCatalog(t)...)
	for i, j := range reversed {
		shuffled[i] = products[j]
	}

	for i := 0; i < 10; i++ {
		again := s.Rank(products, p, 5)
		if !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d differs", i)
		}
	}
	if !reflect.DeepEqual(rankedIDs(s.Rank(shuffled, p, 5)), rankedIDs(first)) {
		t.Error("input order changed the ranking")
	}
}

func TestRank_Limits(t *testing.T) {
	var fs []fixture
	for i := 0; i < 60; i++ {
		fs = append(fs, fixture{id: string(rune('A' + i)), cents: int64(100 + i), stars: []int{4}})
	}
	products := buildAll(t, fs...)
	s := NewScorer(0)

	if got := len(s.Rank(products, plan.Plan{}, 0)); got != DefaultTopK {
		t.Errorf("k=0 returns %d, want %d", got, DefaultTopK)
	}
	if got := len(s.Rank(products, plan.Plan{}, 55)); got != 55 {
		t.Errorf("k=55 returns %d, want 55", got)
	}
	if got := len(s.Rank(products, plan.Plan{}, 500)); got != len(products) {
		t.Errorf("k=500 returns %d, want all %d", got, len(products))
	}
	if got := len(s.Rank(products[:3], plan.Plan{}, 10)); got != 3 {
		t.Errorf("fewer candidates than k returns %d, want 3", got)
	}
	if got := s.Rank(nil, plan.Plan{}, 10); len(got) != 0 {
		t.Errorf("no candidates returns %d results", len(got))
	}
	if got := NewScorer(8).Limit(0); got != 8 {
		t.Errorf("configured default = %d, want 8", got)
	}
}
