// Package retrieval filters a catalog snapshot by a query plan and ranks
// the survivors.
package retrieval

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
	"github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
)

// Service runs filter then rank. It holds no per-call state.
type Service struct {
	scorer *Scorer
}

// New creates a retrieval Service.
func New(scorer *Scorer) *Service {
	if scorer == nil {
		scorer = NewScorer(DefaultTopK)
	}
	return &Service{scorer: scorer}
}

// Retrieve returns the top k products of snap for p. The plan is validated
// before any product is looked at. An empty result is not an error.
func (s *Service) Retrieve(snap *catalog.Snapshot, p plan.Plan, k int) ([]candidate.Scored, error) {
	if err := p.Validate(); err != nil {
		metrics.RetrievalTotal.WithLabelValues("invalid_plan").Inc()
		return nil, err //nolint:wrapcheck // already wraps ErrInvalidPlan
	}
	if snap == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrIndexNotLoaded)
	}

	start := time.Now()
	candidates := Filter(snap.Products(), p)
	ranked := s.scorer.Rank(candidates, p, k)
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	outcome := "ok"
	if len(ranked) == 0 {
		outcome = "empty"
	}
	metrics.RetrievalTotal.WithLabelValues(outcome).Inc()
	return ranked, nil
}
