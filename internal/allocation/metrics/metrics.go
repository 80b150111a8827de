// Package metrics exposes allocation state machine counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "organlink/pkg/domain-errors"
)

// TransitionsTotal counts state machine transitions by operation and outcome.
// Outcome is "ok" or the domain error code.
var TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "organlink_allocation_transitions_total",
	Help: "Allocation transitions by operation and outcome.",
}, []string{"operation", "outcome"})

// AutoAcceptedTotal counts internal matches that skipped the pending state.
var AutoAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "organlink_allocation_auto_accepted_total",
	Help: "Allocation requests auto-accepted as internal matches.",
})

// Observe records one transition outcome.
func Observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	TransitionsTotal.WithLabelValues(operation, outcome).Inc()
}
