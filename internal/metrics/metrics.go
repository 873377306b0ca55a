// Package metrics provides Prometheus metrics for the evaluation engine
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the evaluation engine
type Metrics struct {
	ItemsEvaluated    prometheus.Counter
	PassesCompleted   prometheus.Counter
	BatchDuration     prometheus.Histogram
	CalculatorsActive prometheus.Gauge
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics, registering them on first use
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = &Metrics{
			ItemsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "dialectsearch_items_evaluated_total",
				Help: "Total number of item evaluations",
			}),
			PassesCompleted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "dialectsearch_passes_completed_total",
				Help: "Total number of full evaluation passes reaching done",
			}),
			BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "dialectsearch_batch_duration_seconds",
				Help:    "Duration of one evaluation batch",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			}),
			CalculatorsActive: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "dialectsearch_calculators_cached",
				Help: "Number of calculators held in the dispatch cache",
			}),
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "dialectsearch_calculator_cache_hits_total",
				Help: "Calculator cache hits on filter activation",
			}),
			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "dialectsearch_calculator_cache_misses_total",
				Help: "Calculator cache misses on filter activation",
			}),
		}
	})
	return defaultMetrics
}
