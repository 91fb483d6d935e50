package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/feature"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/product"
	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
)

type mockAdvisor struct {
	plan       llm.PlanResult
	planErr    error
	explain    llm.Explanation
	explainErr error

	planCalls int
	explained []candidate.Scored
}

func (m *mockAdvisor) Plan(_ context.Context, _ string, _ []llm.Turn) (llm.PlanResult, error) {
	m.planCalls++
	return m.plan, m.planErr
}

func (m *mockAdvisor) Explain(
	_ context.Context, _ string, _ plan.Plan, ranked []candidate.Scored, _ []llm.Turn,
) (llm.Explanation, error) {
	m.explained = ranked
	return m.explain, m.explainErr
}

type mockSnapshots struct {
	snap *catalog.Snapshot
	err  error
}

func (m *mockSnapshots) Current() (*catalog.Snapshot, error) { return m.snap, m.err }

// snapshotOf builds n wireless earbuds priced 40..40+n dollars, all rated 5.
func snapshotOf(t *testing.T, n int) *catalog.Snapshot {
	t.Helper()
	products := make([]product.Product, 0, n)
	for i := range n {
		var h product.Histogram
		for range 12 {
			h.Add(5)
		}
		mean, _ := h.Mean()
		price := product.Price(4000 + int64(i)*100)
		p, err := product.New(product.Params{
			ID:          fmt.Sprintf("B%03d", i),
			Title:       fmt.Sprintf("Earbuds %d", i),
			Category:    "Earbud Headphones",
			Price:       &price,
			Tags:        feature.NewSet(feature.Wireless, feature.SweatProof),
			ReviewCount: h.Total(),
			AvgRating:   &mean,
			Histogram:   h,
		})
		if err != nil {
			t.Fatalf("product.New: %v", err)
		}
		products = append(products, p)
	}
	return catalog.NewSnapshot(products, "build-test", "/tmp/index.jsonl", time.Now())
}
