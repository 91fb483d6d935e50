package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLM provider metrics. Labels use the advisor operation ("plan", "explain", "health").
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"operation", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buyingguide",
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"operation", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"operation", "model", "type"},
	)

	LLMErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "llm_errors_total",
			Help:      "Total LLM errors",
		},
		[]string{"operation", "model", "error_type"},
	)

	LLMBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "buyingguide",
			Name:      "llm_budget_tokens_remaining",
			Help:      "Remaining LLM token budget",
		},
		[]string{"provider", "period"},
	)

	LLMRateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "llm_rate_limited_total",
			Help:      "LLM calls rejected by the local rate limiter",
		},
		[]string{"operation"},
	)

	PlanCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "plan_cache_total",
			Help:      "Plan cache hits and misses",
		},
		[]string{"result"},
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers LLM metrics. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		LLMRequestsTotal,
		LLMRequestDuration,
		LLMTokensTotal,
		LLMErrorsTotal,
		LLMBudgetTokensRemaining,
		LLMRateLimitedTotal,
		PlanCacheTotal,
	)
	llmMetricsRegistered = true
}
