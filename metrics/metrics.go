// Package metrics exposes prometheus counters for the resolution pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeLyrics      = "lyrics"
	OutcomeFallbackURL = "fallback_url"
)

type Metrics struct {
	registry         *prometheus.Registry
	MetadataRequests *prometheus.CounterVec
	SourceAttempts   *prometheus.CounterVec
	Resolutions      *prometheus.CounterVec
	SourceDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		MetadataRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsfinder_metadata_requests_total",
			Help: "Catalog searches by outcome.",
		}, []string{"outcome"}),
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsfinder_source_attempts_total",
			Help: "Lyrics source attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lyricsfinder_resolutions_total",
			Help: "Completed resolutions by how lyrics were delivered.",
		}, []string{"outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lyricsfinder_source_duration_seconds",
			Help:    "Time spent in each lyrics source.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MetadataRequests,
		m.SourceAttempts,
		m.Resolutions,
		m.SourceDuration,
	)
	return m
}

func (m *Metrics) ObserveMetadata(outcome string) {
	if m == nil {
		return
	}
	m.MetadataRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSource(source string, succeeded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeMiss
	if succeeded {
		outcome = OutcomeHit
	}
	m.SourceAttempts.WithLabelValues(source, outcome).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
