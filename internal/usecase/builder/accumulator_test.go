package builder

import (
	"reflect"
	"testing"
)

func sampleReviews() []reviewLine {
	return []reviewLine{
		{ID: "p", Star: 5, Helpful: 2, Text: "Great bass. Comfortable fit."},
		{ID: "p", Star: 4, Helpful: 0, Text: "great bass, long battery life"},
		{ID: "p", Star: 1, Helpful: 7, Text: "Poor battery and flimsy build."},
		{ID: "p", Star: 3, Helpful: 1, Text: "Great bass but poor mic"},
		{ID: "p", Star: 2, Helpful: 0, Text: "poor battery"},
		{ID: "p", Star: 5, Helpful: 1, Text: "Excellent sound quality"},
	}
}

func fold(reviews []reviewLine) *Accumulator {
	a := NewAccumulator()
	for _, r := range reviews {
		a.Add(r)
	}
	return a
}

func TestAccumulator_MergeAssociative(t *testing.T) {
	rs := sampleReviews()
	whole := fold(rs)

	a, b, c := fold(rs[:2]), fold(rs[2:3]), fold(rs[3:])

	left := fold(nil)
	left.Merge(a)
	left.Merge(b)
	left.Merge(c)

	bc := fold(nil)
	bc.Merge(b)
	bc.Merge(c)
	right := fold(nil)
	right.Merge(a)
	right.Merge(bc)

	reversed := fold(nil)
	reversed.Merge(c)
	reversed.Merge(b)
	reversed.Merge(a)

	for name, got := range map[string]*Accumulator{"left": left, "right": right, "reversed": reversed} {
		if !reflect.DeepEqual(got, whole) {
			t.Errorf("%s merge = %+v, want %+v", name, got, whole)
		}
	}
}

func TestAccumulator_Add(t *testing.T) {
	a := fold(sampleReviews())
	if a.Count() != 6 {
		t.Fatalf("count = %d, want 6", a.Count())
	}

	wantPros := map[string]PhraseTally{
		"great bass":      {Support: 2, Weight: 4},
		"comfortable fit": {Support: 1, Weight: 3},
		"long battery":    {Support: 1, Weight: 1},
		"excellent sound": {Support: 1, Weight: 2},
	}
	if !reflect.DeepEqual(a.Pros, wantPros) {
		t.Errorf("pros = %v, want %v", a.Pros, wantPros)
	}
	wantCons := map[string]PhraseTally{
		"poor battery":         {Support: 2, Weight: 9},
		"flimsy build quality": {Support: 1, Weight: 8},
	}
	if !reflect.DeepEqual(a.Cons, wantCons) {
		t.Errorf("cons = %v, want %v", a.Cons, wantCons)
	}
}

func TestAccumulator_IgnoresOutOfRangeStars(t *testing.T) {
	a := NewAccumulator()
	if a.Add(reviewLine{Star: 0, Text: "great bass"}) || a.Add(reviewLine{Star: 6}) {
		t.Error("out of range stars must be rejected")
	}
	if a.Count() != 0 || len(a.Pros) != 0 {
		t.Errorf("rejected reviews leaked into the accumulator: %+v", a)
	}
}

func TestAccumulator_MeanRounded(t *testing.T) {
	a := fold([]reviewLine{{Star: 5}, {Star: 4}, {Star: 4}})
	mean, ok := a.Mean()
	if !ok || mean != 4.333 {
		t.Errorf("mean = %v %v, want 4.333", mean, ok)
	}
	if _, ok := NewAccumulator().Mean(); ok {
		t.Error("empty accumulator has no mean")
	}
}

func TestAccumulator_Product(t *testing.T) {
	cents := int64(4999)
	meta := productMeta{ID: "p", Title: "Buds", Category: "Earbud Headphones", PriceCents: &cents}
	p, err := fold(sampleReviews()).Product(meta)
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if p.ReviewCount() != 6 {
		t.Errorf("review count = %d", p.ReviewCount())
	}
	if got := p.Pros(); got[0] != "great bass" {
		t.Errorf("top pro = %v", got)
	}
	if got := p.Cons(); !reflect.DeepEqual(got, []string{"poor battery", "flimsy build quality"}) {
		t.Errorf("cons = %v", got)
	}
	if price, ok := p.Price(); !ok || price != 4999 {
		t.Errorf("price = %v %v", price, ok)
	}
}
