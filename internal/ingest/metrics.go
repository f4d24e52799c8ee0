package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for codeqa_ingestions_total.
const (
	outcomeIngested        = "ingested"
	outcomeAlreadyIngested = "already_ingested"
	outcomeInvalidURL      = "invalid_url"
)

// Metrics holds Prometheus metrics for ingestion.
type Metrics struct {
	ingestions *prometheus.CounterVec
	chunks     prometheus.Counter
	skipped    prometheus.Counter
	duration   prometheus.Histogram
}

// NewMetrics creates ingestion metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codeqa_ingestions_total",
			Help: "Repository ingestions by outcome",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeqa_ingested_chunks_total",
			Help: "Chunks written to the vector store",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codeqa_skipped_files_total",
			Help: "Files skipped because their content was not text",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeqa_ingest_duration_seconds",
			Help:    "Duration of ingestions that did work",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.ingestions, m.chunks, m.skipped, m.duration)
	}
	return m
}

func (m *Metrics) record(outcome string) {
	m.ingestions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordFailure(reason Reason) {
	m.record("failed_" + string(reason))
}

func (m *Metrics) recordSuccess(result *Result) {
	m.record(outcomeIngested)
	m.chunks.Add(float64(result.Points))
	m.skipped.Add(float64(result.SkippedFiles))
	m.duration.Observe(result.Duration.Seconds())
}
