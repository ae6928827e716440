package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	queriesTotal     *prometheus.CounterVec
	attemptsTotal    *prometheus.CounterVec
	queryLatency     *prometheus.HistogramVec
	completionTokens *prometheus.CounterVec
	transcriptLength *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_queries_total",
				Help: "Total number of queries by outcome",
			},
			[]string{"model", "status"},
		),

		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_query_attempts_total",
				Help: "Total number of API attempts by outcome",
			},
			[]string{"model", "outcome"},
		),

		queryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_query_latency_seconds",
				Help:    "Latency of the successful API attempt in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"model"},
		),

		completionTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_completion_tokens_total",
				Help: "Completion tokens reported by the provider",
			},
			[]string{"model"},
		),

		transcriptLength: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parley_transcript_messages",
				Help: "Number of messages in the session transcript",
			},
			[]string{"session"},
		),
	}

	reg.MustRegister(r.queriesTotal)
	reg.MustRegister(r.attemptsTotal)
	reg.MustRegister(r.queryLatency)
	reg.MustRegister(r.completionTokens)
	reg.MustRegister(r.transcriptLength)

	return r
}

// RecordQuery records a finished query. status is "ok" or "error".
func (r *Registry) RecordQuery(model, status string) {
	r.queriesTotal.WithLabelValues(model, status).Inc()
}

// RecordAttempt records a single API attempt. outcome is "ok", "timeout" or "error".
func (r *Registry) RecordAttempt(model, outcome string) {
	r.attemptsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordCompletion records latency and usage of a successful attempt.
func (r *Registry) RecordCompletion(model string, latencySeconds float64, tokens int) {
	r.queryLatency.WithLabelValues(model).Observe(latencySeconds)
	r.completionTokens.WithLabelValues(model).Add(float64(tokens))
}

// SetTranscriptLength sets the transcript size of a session.
func (r *Registry) SetTranscriptLength(session string, n int) {
	r.transcriptLength.WithLabelValues(session).Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format, for pickup
// by the node exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
