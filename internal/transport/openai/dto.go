package openai

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
)

// Planner defaults applied when the model omits a field.
const (
	DefaultBudgetFlex = 0.3
	DefaultMinReviews = 10
)

const (
	maxExplainedProducts = 5
	maxExplainedPhrases  = 3
)

// plannerOutput is the JSON contract of the planner model.
type plannerOutput struct {
	Budget           *float64 `json:"budget"`
	BudgetFlexPct    *float64 `json:"budget_flex_pct"`
	CeilingOnly      bool     `json:"ceiling_only"`
	MinReviews       *int     `json:"min_reviews"`
	UseCase          string   `json:"use_case"`
	PriorityAspects  []string `json:"priority_aspects"`
	MustHaveKeywords []string `json:"must_have_keywords"`
	BoostKeywords    []string `json:"boost_keywords"`
	Notes            string   `json:"notes"`
}

func parsePlannerOutput(content string) (plannerOutput, error) {
	var out plannerOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return plannerOutput{}, err //nolint:wrapcheck // wrapped by caller
	}
	return out, nil
}

// toPlan converts the model output. A budget becomes the band
// budget*(1-flex)..budget*(1+flex) unless the model marks it ceiling_only.
// Keywords that do not resolve to a known feature tag are returned as dropped.
func (o plannerOutput) toPlan() (plan.Plan, []string) {
	p := plan.Plan{Notes: o.Notes, MinReviews: DefaultMinReviews}

	if o.MinReviews != nil {
		p.MinReviews = max(*o.MinReviews, 0)
	}

	if u, err := plan.ParseUseCase(o.UseCase); err == nil {
		p.UseCase = u
	} else {
		p.UseCase = plan.UseCaseGeneral
	}

	if o.Budget != nil && *o.Budget > 0 && !math.IsInf(*o.Budget, 0) {
		flex := DefaultBudgetFlex
		if o.BudgetFlexPct != nil && *o.BudgetFlexPct >= 0 {
			flex = min(*o.BudgetFlexPct, 1)
		}
		p.BudgetTarget = dollars(*o.Budget)
		p.BudgetCeiling = dollars(*o.Budget * (1 + flex))
		if !o.CeilingOnly {
			p.BudgetFloor = dollars(*o.Budget * (1 - flex))
		}
	}

	required, droppedRequired := knownTags(o.MustHaveKeywords)
	preferred, droppedPreferred := knownTags(append(append([]string{}, o.BoostKeywords...), o.PriorityAspects...))
	p.RequiredFeatures = feature.NewSet(required...)
	p.PreferredFeatures = feature.NewSet(preferred...)

	return p, append(droppedRequired, droppedPreferred...)
}

func knownTags(words []string) (known, dropped []string) {
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			continue
		}
		if tag := feature.Normalize(w); feature.Known(tag) {
			known = append(known, tag)
		} else {
			dropped = append(dropped, w)
		}
	}
	return known, dropped
}

func dollars(d float64) *product.Price {
	p, err := product.PriceFromDollars(d)
	if err != nil {
		return nil
	}
	return &p
}

type explainPlanDTO struct {
	BudgetCeiling     *float64 `json:"budget_ceiling,omitempty"`
	BudgetFloor       *float64 `json:"budget_floor,omitempty"`
	BudgetTarget      *float64 `json:"budget_target,omitempty"`
	UseCase           string   `json:"use_case,omitempty"`
	RequiredFeatures  []string `json:"required_features,omitempty"`
	PreferredFeatures []string `json:"preferred_features,omitempty"`
	MinReviews        int      `json:"min_reviews"`
	Notes             string   `json:"notes,omitempty"`
}

type explainProductDTO struct {
	Rank        int      `json:"rank"`
	ID          string   `json:"asin"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	AvgRating   *float64 `json:"avg_rating"`
	ReviewCount int      `json:"review_count"`
	Pros        []string `json:"sample_pros"`
	Cons        []string `json:"sample_cons"`
}

type explainPayloadDTO struct {
	Query    string              `json:"user_query"`
	Plan     explainPlanDTO      `json:"plan"`
	Products []explainProductDTO `json:"products"`
}

func explainerPayload(query string, p plan.Plan, ranked []candidate.Scored) (string, error) {
	payload := explainPayloadDTO{
		Query: query,
		Plan: explainPlanDTO{
			BudgetCeiling:     priceDollars(p.BudgetCeiling),
			BudgetFloor:       priceDollars(p.BudgetFloor),
			BudgetTarget:      priceDollars(p.BudgetTarget),
			UseCase:           string(p.UseCase),
			RequiredFeatures:  p.RequiredFeatures.Strings(),
			PreferredFeatures: p.PreferredFeatures.Strings(),
			MinReviews:        p.MinReviews,
			Notes:             p.Notes,
		},
		Products: make([]explainProductDTO, 0, min(len(ranked), maxExplainedProducts)),
	}

	for _, c := range ranked[:min(len(ranked), maxExplainedProducts)] {
		d := explainProductDTO{
			Rank:        c.Rank,
			ID:          c.Product.ID(),
			Title:       c.Product.Title(),
			ReviewCount: c.Product.ReviewCount(),
			Pros:        head(c.Product.Pros(), maxExplainedPhrases),
			Cons:        head(c.Product.Cons(), maxExplainedPhrases),
		}
		if price, ok := c.Product.Price(); ok {
			v := price.Dollars()
			d.Price = &v
		}
		if avg, ok := c.Product.AvgRating(); ok {
			d.AvgRating = &avg
		}
		payload.Products = append(payload.Products, d)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err //nolint:wrapcheck // wrapped by caller
	}
	return string(data), nil
}

func priceDollars(p *product.Price) *float64 {
	if p == nil {
		return nil
	}
	v := p.Dollars()
	return &v
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
