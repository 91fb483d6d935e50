// Package recommend answers a free-text query: plan, retrieve, explain.
package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/logger"
)

// MaxExplained caps how many ranked products are sent to the explainer.
const MaxExplained = 5

// Request is one recommendation call.
type Request struct {
	Query   string
	History []llm.Turn
	TopK    int
}

// Result is the answer to a Request. ExplanationError is set when the
// explainer failed; Results are still valid in that case.
type Result struct {
	Plan             plan.Plan
	Results          []candidate.Scored
	Explanation      string
	ExplanationError string
	BuildID          string
	Usage            llm.TokenUsage
}

// Service coordinates the advisor and the retriever.
type Service struct {
	advisor   llm.Advisor
	snapshots Snapshots
	retriever Retriever
}

// New creates a recommend service.
func New(advisor llm.Advisor, snapshots Snapshots, retriever Retriever) *Service {
	return &Service{advisor: advisor, snapshots: snapshots, retriever: retriever}
}

// Recommend plans the query, ranks the current snapshot and explains the
// top results. The snapshot is resolved before any LLM call so an unloaded
// index costs no tokens.
func (s *Service) Recommend(ctx context.Context, req Request) (Result, error) {
	snap, err := s.snapshots.Current()
	if err != nil {
		return Result{}, fmt.Errorf("current snapshot: %w", err)
	}
	ctx = logger.WithFields(ctx, zap.String("build_id", snap.BuildID()))

	planned, err := s.advisor.Plan(ctx, req.Query, req.History)
	if err != nil {
		return Result{}, fmt.Errorf("plan query: %w", err)
	}

	ranked, err := s.retriever.Retrieve(snap, planned.Plan, req.TopK)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	res := Result{
		Plan:    planned.Plan,
		Results: ranked,
		BuildID: snap.BuildID(),
		Usage:   planned.Usage,
	}
	if len(ranked) == 0 {
		return res, nil
	}

	top := ranked[:min(len(ranked), MaxExplained)]
	exp, err := s.advisor.Explain(ctx, req.Query, planned.Plan, top, req.History)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("explain: %w", ctx.Err())
		}
		logger.FromContext(ctx).Warn("Explanation failed, returning results without it", zap.Error(err))
		res.ExplanationError = "explanation unavailable"
		return res, nil
	}

	res.Explanation = exp.Text
	res.Usage = addUsage(res.Usage, exp.Usage)
	return res, nil
}

func addUsage(a, b llm.TokenUsage) llm.TokenUsage {
	return llm.TokenUsage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
