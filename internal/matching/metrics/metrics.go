// Package metrics exposes Prometheus counters for the matching surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "organlink/pkg/domain-errors"
)

var (
	// SearchesTotal counts match searches by kind and outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "organlink_matching_searches_total",
			Help: "Match searches by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// MatchesReturned observes result set sizes.
	MatchesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "organlink_matching_results",
			Help:    "Number of matches returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

// Observe records one search outcome.
func Observe(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	SearchesTotal.WithLabelValues(kind, outcome).Inc()
}
