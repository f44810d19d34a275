// Package metrics registers the prometheus instruments for the extraction
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papyrus_extraction_outcomes_total",
			Help: "Extraction outcomes per extractor and outcome kind",
		},
		[]string{"extractor", "outcome"},
	)

	progressNotes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "papyrus_progress_notes_total",
			Help: "Throttled progress notes forwarded to the notification sink",
		},
	)
)

// ObserveOutcome counts one extractor invocation outcome.
func ObserveOutcome(extractor, outcome string) {
	extractionOutcomes.WithLabelValues(extractor, outcome).Inc()
}

// ObserveProgressNote counts one forwarded progress note.
func ObserveProgressNote() {
	progressNotes.Inc()
}
