// Package llm defines the language-model collaborator that plans queries
// and explains ranked results.
package llm

import (
	"context"

	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
)

// Role of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of caller-supplied chat history.
type Turn struct {
	Role    Role
	Content string
}

// TokenUsage reports tokens consumed by one provider call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// PlanResult is the structured plan produced for a query.
type PlanResult struct {
	Plan  plan.Plan
	Usage TokenUsage
}

// Explanation is the natural-language summary of a ranking.
type Explanation struct {
	Text  string
	Usage TokenUsage
}

// Advisor turns free text into plans and rankings into explanations.
type Advisor interface {
	Plan(ctx context.Context, query string, history []Turn) (PlanResult, error)
	Explain(ctx context.Context, query string, p plan.Plan, ranked []candidate.Scored, history []Turn) (Explanation, error)
}

// HealthChecker is implemented by advisors that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
