// Package metrics counts pipeline outcomes in a private Prometheus registry.
// There is no listener; a CLI run may dump the registry to a textfile for the
// node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	PersonalizationsTotal *prometheus.CounterVec
	ExtractionsTotal      *prometheus.CounterVec
	FetchesTotal          *prometheus.CounterVec
	PersonaMatchesTotal   *prometheus.CounterVec
	LLMRequestDuration    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		PersonalizationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clickconverter_personalizations_total",
			Help: "Personalized pages produced, by source and fallback reason.",
		}, []string{"source", "reason"}),
		ExtractionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clickconverter_extractions_total",
			Help: "HTML extractions, by status.",
		}, []string{"status"}), // ok, invalid_input
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clickconverter_fetches_total",
			Help: "Page fetches, by fetcher and status.",
		}, []string{"fetcher", "status"}),
		PersonaMatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clickconverter_persona_matches_total",
			Help: "Persona matches, by persona id.",
		}, []string{"persona"}),
		LLMRequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clickconverter_llm_request_duration_seconds",
			Help:    "Duration of chat completion requests.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
	}
}

func (m *Metrics) IncPersonalization(source, reason string) {
	if m == nil {
		return
	}
	m.PersonalizationsTotal.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) IncExtraction(status string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncFetch(fetcher, status string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(fetcher, status).Inc()
}

func (m *Metrics) IncPersonaMatch(id string) {
	if m == nil {
		return
	}
	m.PersonaMatchesTotal.WithLabelValues(id).Inc()
}

func (m *Metrics) ObserveLLMRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
