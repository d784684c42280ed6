package rtreeindex

import (
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics mirrors the storage layer's server-side metrics grouping
// (requests, cache, bucket) but scoped to tree construction and query
// submission (§2 ambient stack, §4.6.1).
type metrics struct {
	buildDuration   prometheus.Histogram
	buildLeafCount  prometheus.Histogram
	submitResults   *prometheus.CounterVec
	submitCells     prometheus.Histogram
	submitTiles     prometheus.Histogram
}

var (
	metricsOnce sync.Once
	pkgMetrics  *metrics
)

func register[K prometheus.Collector](logger *log.Logger, metric K) K {
	if err := prometheus.Register(metric); err != nil {
		if logger != nil {
			logger.Println(err)
		}
	}
	return metric
}

func getMetrics() *metrics {
	metricsOnce.Do(func() {
		pkgMetrics = createMetrics(nil)
	})
	return pkgMetrics
}

func createMetrics(logger *log.Logger) *metrics {
	namespace := "rtreeindex"

	return &metrics{
		buildDuration: register(logger, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time to bulk-build an R-tree from a sorted leaf MBR sequence",
			Buckets:   prometheus.DefBuckets,
		})),
		buildLeafCount: register(logger, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_leaf_count",
			Help:      "Number of leaf MBRs supplied to Build",
			Buckets:   prometheus.ExponentialBuckets(1, 8, 10),
		})),
		submitResults: register(logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_results_total",
			Help:      "Query.Submit calls by outcome (complete, incomplete, failed)",
		}, []string{"outcome"})),
		submitCells: register(logger, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_cells_copied",
			Help:      "Cells copied into caller buffers per Submit call",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		})),
		submitTiles: register(logger, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submit_tiles_visited",
			Help:      "Leaf tiles visited per Submit call",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		})),
	}
}

func (m *metrics) observeBuild(seconds float64, leafCount int) {
	m.buildDuration.Observe(seconds)
	m.buildLeafCount.Observe(float64(leafCount))
}

func (m *metrics) observeSubmit(outcome string, cells, tiles int) {
	m.submitResults.WithLabelValues(outcome).Inc()
	m.submitCells.Observe(float64(cells))
	m.submitTiles.Observe(float64(tiles))
}
