// Package advisor decorates the LLM collaborator with rate limiting, token
// budgets and logging.
package advisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/domain/usage"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
)

const (
	opPlan    = "plan"
	opExplain = "explain"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Remaining(period usage.Period) int64
}

// InstrumentedAdvisor wraps an llm.Advisor. Transport metrics (requests,
// duration, tokens) are recorded in transport/openai; this layer owns the
// local rate limit and the token budget.
type InstrumentedAdvisor struct {
	inner    llm.Advisor
	provider string
	model    string
	budget   BudgetChecker
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewInstrumentedAdvisor wraps inner. budget and limiter may be nil.
func NewInstrumentedAdvisor(
	inner llm.Advisor, provider, model string,
	budget BudgetChecker, limiter *rate.Limiter, logger *zap.Logger,
) *InstrumentedAdvisor {
	return &InstrumentedAdvisor{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		limiter:  limiter,
		logger:   logger,
	}
}

// NewLimiter allows perSecond calls on average with the given burst.
// A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Plan admits the call, delegates and records usage.
func (a *InstrumentedAdvisor) Plan(ctx context.Context, query string, history []llm.Turn) (llm.PlanResult, error) {
	if err := a.admit(ctx, opPlan); err != nil {
		return llm.PlanResult{}, err
	}

	start := time.Now()
	res, err := a.inner.Plan(ctx, query, history)
	duration := time.Since(start)
	if err != nil {
		a.logger.Error("LLM plan request failed",
			zap.String("provider", a.provider),
			zap.String("model", a.model),
			zap.Duration("duration", duration),
			zap.Int("history_turns", len(history)),
			zap.Error(err),
		)
		return llm.PlanResult{}, fmt.Errorf("plan: %w", err)
	}

	a.record(res.Usage)
	a.logger.Debug("LLM plan request completed",
		zap.String("provider", a.provider),
		zap.String("model", a.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", res.Usage.PromptTokens),
		zap.Int("total_tokens", res.Usage.TotalTokens),
	)
	return res, nil
}

// Explain admits the call, delegates and records usage.
func (a *InstrumentedAdvisor) Explain(
	ctx context.Context, query string, p plan.Plan, ranked []candidate.Scored, history []llm.Turn,
) (llm.Explanation, error) {
	if err := a.admit(ctx, opExplain); err != nil {
		return llm.Explanation{}, err
	}

	start := time.Now()
	res, err := a.inner.Explain(ctx, query, p, ranked, history)
	duration := time.Since(start)
	if err != nil {
		a.logger.Error("LLM explain request failed",
			zap.String("provider", a.provider),
			zap.String("model", a.model),
			zap.Duration("duration", duration),
			zap.Int("candidates", len(ranked)),
			zap.Error(err),
		)
		return llm.Explanation{}, fmt.Errorf("explain: %w", err)
	}

	a.record(res.Usage)
	a.logger.Debug("LLM explain request completed",
		zap.String("provider", a.provider),
		zap.String("model", a.model),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", res.Usage.CompletionTokens),
		zap.Int("total_tokens", res.Usage.TotalTokens),
	)
	return res, nil
}

// HealthCheck forwards to the inner advisor when it can probe its provider.
func (a *InstrumentedAdvisor) HealthCheck(ctx context.Context) error {
	hc, ok := a.inner.(llm.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
}

func (a *InstrumentedAdvisor) admit(ctx context.Context, op string) error {
	if a.limiter != nil && !a.limiter.Allow() {
		metrics.LLMRateLimitedTotal.WithLabelValues(op).Inc()
		a.logger.Warn("LLM call rate limited", zap.String("operation", op))
		return fmt.Errorf("%s: %w", op, domain.ErrRateLimited)
	}
	if a.budget != nil {
		if err := a.budget.Check(ctx); err != nil {
			a.logger.Error("LLM budget exceeded",
				zap.String("provider", a.provider),
				zap.String("model", a.model),
				zap.String("operation", op),
				zap.Error(err),
			)
			return fmt.Errorf("budget check: %w", err)
		}
	}
	return nil
}

func (a *InstrumentedAdvisor) record(u llm.TokenUsage) {
	if a.budget == nil || u.TotalTokens <= 0 {
		return
	}
	a.budget.Record(int64(u.TotalTokens))
	for _, p := range usage.Periods {
		metrics.LLMBudgetTokensRemaining.WithLabelValues(a.provider, string(p)).Set(float64(a.budget.Remaining(p)))
	}
}
