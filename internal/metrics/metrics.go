package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts lifecycle mutations by operation and result
	// (ok, precondition_failed, not_found, validation_failed, error).
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "premisewatch_mutations_total",
		Help: "Lifecycle mutations by operation and result.",
	}, []string{"op", "result"})

	// Refreshes counts full cache refreshes by view and outcome.
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "premisewatch_cache_refreshes_total",
		Help: "Full cache refreshes by view and outcome.",
	}, []string{"view", "outcome"})

	// Conflicts counts guarded writes rejected by the store because the
	// row changed concurrently.
	Conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "premisewatch_write_conflicts_total",
		Help: "Conditional updates that matched zero rows.",
	})

	// Briefings counts narrative briefing generations by outcome.
	Briefings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "premisewatch_briefings_total",
		Help: "Narrative briefing generations by outcome.",
	}, []string{"outcome"})
)
