package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval metrics.
var (
	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buyingguide",
			Name:      "retrieval_duration_seconds",
			Help:      "Filter and rank duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "buyingguide",
			Name:      "retrieval_candidates",
			Help:      "Products surviving the filter stage",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	RetrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "retrieval_total",
			Help:      "Retrieval calls by outcome",
		},
		[]string{"outcome"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalDuration, RetrievalCandidates, RetrievalTotal)
	retrievalMetricsRegistered = true
}
