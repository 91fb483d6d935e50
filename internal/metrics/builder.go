package metrics

import "github.com/prometheus/client_golang/prometheus"

// BuilderMetrics are the index builder counters. They live on the registry
// handed in by the indexer so that batch runs do not pollute the default one.
type BuilderMetrics struct {
	RecordsRead    *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec
	RecordsKept    *prometheus.CounterVec
	PassDuration   *prometheus.HistogramVec
	BatchesTotal   prometheus.Counter
	Products       prometheus.Gauge
}

// NewBuilderMetrics creates builder metrics and registers them on reg.
func NewBuilderMetrics(reg prometheus.Registerer) *BuilderMetrics {
	m := &BuilderMetrics{
		RecordsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buyingguide_indexer",
			Name:      "records_read_total",
			Help:      "Raw records read",
		}, []string{"pass"}),

		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buyingguide_indexer",
			Name:      "records_skipped_total",
			Help:      "Records skipped",
		}, []string{"pass", "reason"}),

		RecordsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buyingguide_indexer",
			Name:      "records_kept_total",
			Help:      "Records written to the pass output",
		}, []string{"pass"}),

		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "buyingguide_indexer",
			Name:      "pass_duration_seconds",
			Help:      "Wall time per builder pass",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"pass"}),

		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "buyingguide_indexer",
			Name:      "aggregation_batches_total",
			Help:      "Review batches folded by aggregation workers",
		}),

		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buyingguide_indexer",
			Name:      "products",
			Help:      "Products in the last written index",
		}),
	}

	reg.MustRegister(
		m.RecordsRead, m.RecordsSkipped, m.RecordsKept,
		m.PassDuration, m.BatchesTotal, m.Products,
	)
	return m
}
