package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
)

const (
	opPlan    = "plan"
	opExplain = "explain"
)

// Advisor is an llm.Advisor using the OpenAI-compatible chat completions API.
type Advisor struct {
	client         *openai.Client
	plannerModel   string
	explainerModel string
	temperature    float32
	timeout        time.Duration
	user           string
	logger         *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	PlannerModel   string
	ExplainerModel string
	Temperature    float32
	// Timeout bounds a single completion call. Zero means the caller's context only.
	Timeout time.Duration
	User    string
	Logger  *zap.Logger
}

// NewAdvisor creates an OpenAI-compatible advisor.
func NewAdvisor(cfg *Config) *Advisor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	explainer := cfg.ExplainerModel
	if explainer == "" {
		explainer = cfg.PlannerModel
	}

	return &Advisor{
		client:         openai.NewClientWithConfig(clientCfg),
		plannerModel:   cfg.PlannerModel,
		explainerModel: explainer,
		temperature:    cfg.Temperature,
		timeout:        cfg.Timeout,
		user:           cfg.User,
		logger:         cfg.Logger,
	}
}

// Plan asks the planner model for a JSON plan and converts it.
func (a *Advisor) Plan(ctx context.Context, query string, history []llm.Turn) (llm.PlanResult, error) {
	req := openai.ChatCompletionRequest{
		Model: a.plannerModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: plannerPrompt},
			{Role: openai.ChatMessageRoleUser, Content: plannerMessage(query, history)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: a.temperature,
		User:        a.user,
	}

	content, usage, err := a.complete(ctx, opPlan, req)
	if err != nil {
		return llm.PlanResult{}, err
	}

	out, err := parsePlannerOutput(content)
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues(opPlan, a.plannerModel, "invalid_json").Inc()
		return llm.PlanResult{}, fmt.Errorf("decode planner output: %w: %w", err, domain.ErrLLMProviderError)
	}

	p, dropped := out.toPlan()
	if len(dropped) > 0 {
		a.logger.Info("Planner keywords outside the feature vocabulary were dropped",
			zap.Strings("keywords", dropped))
	}
	if err := p.Validate(); err != nil {
		return llm.PlanResult{}, fmt.Errorf("planner output: %w", err)
	}

	return llm.PlanResult{Plan: p, Usage: usage}, nil
}

// Explain asks the explainer model to summarize the ranking.
func (a *Advisor) Explain(
	ctx context.Context, query string, p plan.Plan, ranked []candidate.Scored, history []llm.Turn,
) (llm.Explanation, error) {
	payload, err := explainerPayload(query, p, ranked)
	if err != nil {
		return llm.Explanation{}, fmt.Errorf("encode explainer payload: %w", err)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: explainerPrompt})
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(t.Role), Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: payload})

	req := openai.ChatCompletionRequest{
		Model:       a.explainerModel,
		Messages:    msgs,
		Temperature: a.temperature,
		User:        a.user,
	}

	content, usage, err := a.complete(ctx, opExplain, req)
	if err != nil {
		return llm.Explanation{}, err
	}
	return llm.Explanation{Text: content, Usage: usage}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (a *Advisor) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// complete runs one chat completion and records transport-level metrics.
func (a *Advisor) complete(
	ctx context.Context, op string, req openai.ChatCompletionRequest,
) (string, llm.TokenUsage, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(op, req.Model, "error").Inc()
		if errors.Is(err, context.Canceled) {
			return "", llm.TokenUsage{}, fmt.Errorf("%s: %w", op, err)
		}
		metrics.LLMErrorsTotal.WithLabelValues(op, req.Model, "api_error").Inc()
		return "", llm.TokenUsage{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.LLMRequestsTotal.WithLabelValues(op, req.Model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues(op, req.Model, "empty_response").Inc()
		return "", llm.TokenUsage{}, fmt.Errorf("empty %s response: %w", op, domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(op, req.Model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(op, req.Model).Observe(duration.Seconds())

	usage := llm.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(op, req.Model, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(op, req.Model, "completion").Add(float64(usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, usage, nil
}
