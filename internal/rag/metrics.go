package rag

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeAnswered = "answered"
	outcomeFailed   = "failed"
)

// Metrics holds Prometheus metrics for answers.
type Metrics struct {
	answers   *prometheus.CounterVec
	retrieved prometheus.Histogram
}

// NewMetrics creates answer metrics and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeqa_answers_total",
			Help: "Answers by outcome",
		}, []string{"outcome"}),
		retrieved: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeqa_retrieved_chunks",
			Help:    "Chunks retrieved per answer",
			Buckets: prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.answers, m.retrieved)
	}
	return m
}
