package plan

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

func price(c int64) *product.Price {
	p := product.Price(c)
	return &p
}

func TestValidate_FloorAboveCeiling(t *testing.T) {
	p := Plan{BudgetFloor: price(6000), BudgetCeiling: price(5000)}
	err := p.Validate()
	if !errors.Is(err, domain.ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestValidate_EqualBoundsOK(t *testing.T) {
	p := Plan{BudgetFloor: price(5000), BudgetCeiling: price(5000)}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"negative min reviews", Plan{MinReviews: -1}},
		{"unknown use case", Plan{UseCase: "skydiving"}},
		{"unknown signal", Plan{Weights: map[Signal]float64{"vibes": 1}}},
		{"negative weight", Plan{Weights: map[Signal]float64{SignalRating: -0.1}}},
		{"negative target", Plan{BudgetTarget: price(-1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.plan.Validate(); !errors.Is(err, domain.ErrInvalidPlan) {
				t.Errorf("expected ErrInvalidPlan, got %v", err)
			}
		})
	}
}

func TestWeight_Override(t *testing.T) {
	p := Plan{Weights: map[Signal]float64{SignalRating: 0.9}}
	if w := p.Weight(SignalRating); w != 0.9 {
		t.Errorf("rating weight = %v, want 0.9", w)
	}
	if w := p.Weight(SignalBudgetFit); w != 0.30 {
		t.Errorf("budget weight = %v, want default 0.30", w)
	}
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	sum := 0.0
	for _, s := range Signals {
		sum += DefaultWeights()[s]
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("default weights sum to %v", sum)
	}
}

func TestTarget(t *testing.T) {
	if _, ok := (Plan{}).Target(); ok {
		t.Error("no budget means no target")
	}
	got, ok := Plan{BudgetCeiling: price(5000)}.Target()
	if !ok || got != 5000 {
		t.Errorf("target falls back to ceiling, got %v %v", got, ok)
	}
	got, _ = Plan{BudgetCeiling: price(5000), BudgetTarget: price(4000)}.Target()
	if got != 4000 {
		t.Errorf("explicit target ignored, got %v", got)
	}
}

func TestExcludes(t *testing.T) {
	p := Plan{UseCase: UseCaseGym, ExcludedCategories: []string{"Headphone Cases"}}
	if !p.Excludes("Over-Ear Headphones") {
		t.Error("gym must exclude over-ear headphones")
	}
	if !p.Excludes("headphone cases") {
		t.Error("plan exclusion must match case-insensitively")
	}
	if p.Excludes("Earbud Headphones") {
		t.Error("earbuds must not be excluded")
	}
}

func TestParseUseCase(t *testing.T) {
	u, err := ParseUseCase(" Gym ")
	if err != nil || u != UseCaseGym {
		t.Fatalf("ParseUseCase = %q, %v", u, err)
	}
	if _, err := ParseUseCase("karaoke"); err == nil {
		t.Error("expected error for unknown use case")
	}
}
