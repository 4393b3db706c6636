package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	askTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopqa_ask_total",
			Help: "Questions processed by the answer pipeline, by outcome.",
		},
		[]string{"outcome"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopqa_model_call_duration_seconds",
			Help:    "Language model round-trip latency by purpose and status.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"purpose", "status"},
	)
	storeStatementDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopqa_store_statement_duration_seconds",
			Help:    "Relational store statement latency by statement kind and status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind", "status"},
	)
	storeGateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopqa_store_gate_wait_seconds",
			Help:    "Time spent waiting for the store serialization gate.",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
	interpretationFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopqa_interpretation_fallback_total",
			Help: "Interpretation calls that failed and were replaced by the fallback answer.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		askTotal,
		modelCallDurationSeconds,
		storeStatementDurationSeconds,
		storeGateWaitSeconds,
		interpretationFallbackTotal,
	)
}

func ObserveAsk(outcome string) {
	if outcome == "" {
		outcome = "ok"
	}
	askTotal.WithLabelValues(outcome).Inc()
}

func ObserveModelCall(purpose string, elapsed time.Duration, err error) {
	modelCallDurationSeconds.WithLabelValues(purpose, statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveStatement(kind string, elapsed time.Duration, err error) {
	if kind == "" {
		kind = "unknown"
	}
	storeStatementDurationSeconds.WithLabelValues(kind, statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveGateWait(elapsed time.Duration) {
	storeGateWaitSeconds.Observe(elapsed.Seconds())
}

func IncrementInterpretationFallback() {
	interpretationFallbackTotal.Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
