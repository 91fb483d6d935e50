package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog snapshot metrics.
var (
	CatalogProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buyingguide",
			Name:      "catalog_products",
			Help:      "Products in the active snapshot",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "catalog_reloads_total",
			Help:      "Snapshot reload attempts",
		},
		[]string{"status"},
	)

	CatalogDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buyingguide",
			Name:      "catalog_dropped_records_total",
			Help:      "Index records dropped while loading",
		},
		[]string{"reason"},
	)

	CatalogLoadedAt = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "buyingguide",
			Name:      "catalog_loaded_timestamp_seconds",
			Help:      "Unix time the active snapshot was loaded",
		},
	)
)

var catalogMetricsRegistered bool

// RegisterCatalogMetrics registers catalog metrics. Must be called once from main.
func RegisterCatalogMetrics() {
	if catalogMetricsRegistered {
		return
	}
	prometheus.MustRegister(CatalogProducts, CatalogReloadsTotal, CatalogDroppedTotal, CatalogLoadedAt)
	catalogMetricsRegistered = true
}
