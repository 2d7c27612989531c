// Package metrics exposes the titler's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters the controller and subscriber report into.
type Metrics struct {
	EventsReceived     *prometheus.CounterVec
	FallbackTitles     prometheus.Counter
	AITitles           prometheus.Counter
	GenerationFailures prometheus.Counter
	SkippedCustom      prometheus.Counter
	StalePendingSwept  prometheus.Counter
}

// New registers the titler's metrics with the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "titler_events_received_total",
			Help: "Host events processed, by event type.",
		}, []string{"type"}),
		FallbackTitles: factory.NewCounter(prometheus.CounterOpts{
			Name: "titler_fallback_titles_total",
			Help: "Keyword-phase titles written.",
		}),
		AITitles: factory.NewCounter(prometheus.CounterOpts{
			Name: "titler_ai_titles_total",
			Help: "AI-phase titles written.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "titler_generation_failures_total",
			Help: "AI title attempts that produced no usable title.",
		}),
		SkippedCustom: factory.NewCounter(prometheus.CounterOpts{
			Name: "titler_skipped_custom_total",
			Help: "Sessions left alone because the user set a custom title.",
		}),
		StalePendingSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "titler_stale_pending_swept_total",
			Help: "Stuck in-flight AI markers cleared by the janitor.",
		}),
	}
}
