package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "confusion_engine"

var (
	evaluationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "evaluation_latency_seconds",
		Help:      "Time from event receipt to score emission",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"content_type"})

	budgetMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "latency_budget_misses_total",
		Help:      "Evaluations that exceeded the latency budget and were still emitted",
	}, []string{"content_type"})

	scoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "scores_total",
		Help:      "Confusion scores produced by severity",
	}, []string{"severity"})

	droppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "dropped_events_total",
		Help:      "Events dropped before evaluation",
	}, []string{"reason"})

	invalidRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "invalid_records_total",
		Help:      "Malformed events or feedback signals",
	}, []string{"kind"})

	sinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publisher",
		Name:      "sink_failures_total",
		Help:      "Sink deliveries that failed or were dropped",
	}, []string{"sink", "reason"})

	weightAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "weights",
		Name:      "adjustments_total",
		Help:      "Heuristic weight changes by direction",
	}, []string{"heuristic", "content_type", "direction"})

	baselineRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "baseline",
		Name:      "recomputes_total",
		Help:      "Baseline recompute passes by status",
	}, []string{"status"})
)

func ObserveEvaluation(contentType string, latency time.Duration, overBudget bool) {
	evaluationLatency.WithLabelValues(contentType).Observe(latency.Seconds())
	if overBudget {
		budgetMisses.WithLabelValues(contentType).Inc()
	}
}

func RecordScore(severity string) {
	scoresTotal.WithLabelValues(severity).Inc()
}

// RecordDroppedEvent reasons: "lane_full", "closed".
func RecordDroppedEvent(reason string) {
	droppedEvents.WithLabelValues(reason).Inc()
}

// RecordInvalid kinds: "event", "feedback", "explanation".
func RecordInvalid(kind string) {
	invalidRecords.WithLabelValues(kind).Inc()
}

func RecordSinkFailure(sink, reason string) {
	sinkFailures.WithLabelValues(sink, reason).Inc()
}

// RecordWeightAdjustment directions: "increase", "decrease", "reset".
func RecordWeightAdjustment(heuristic, contentType, direction string) {
	weightAdjustments.WithLabelValues(heuristic, contentType, direction).Inc()
}

func RecordRecompute(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	baselineRecomputes.WithLabelValues(status).Inc()
}
