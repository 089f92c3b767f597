// Package metrics defines the Prometheus collectors of the verifier.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks registration, verification and extraction activity.
//
// All methods accept a nil receiver, so components can run without metrics.
type Metrics struct {
	// Registrations counts registration attempts by outcome
	Registrations *prometheus.CounterVec

	// Verifications counts verification attempts by outcome
	Verifications *prometheus.CounterVec

	// ExtractionDuration tracks embedding extraction latency by result
	ExtractionDuration *prometheus.HistogramVec

	// MatchDistance tracks distances computed during verification
	MatchDistance prometheus.Histogram

	// ExtractionsInFlight is the number of extractions holding a slot
	ExtractionsInFlight prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Panics if registration fails.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faceid_registrations_total",
				Help: "Total registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "faceid_verifications_total",
				Help: "Total verification attempts by outcome",
			},
			[]string{"outcome"}, // "accepted", "rejected", or an error kind
		),
		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "faceid_extraction_duration_seconds",
				Help:    "Face embedding extraction duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),
		MatchDistance: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "faceid_match_distance",
				Help:    "Euclidean distance between probe and stored embeddings",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 15),
			},
		),
		ExtractionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "faceid_extractions_in_flight",
				Help: "Current number of running face extractions",
			},
		),
	}

	reg.MustRegister(
		m.Registrations,
		m.Verifications,
		m.ExtractionDuration,
		m.MatchDistance,
		m.ExtractionsInFlight,
	)

	return m
}

func (m *Metrics) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// RecordExtraction observes one extraction; result is "ok" or an error kind.
func (m *Metrics) RecordExtraction(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) ObserveDistance(d float64) {
	if m == nil {
		return
	}
	m.MatchDistance.Observe(d)
}

func (m *Metrics) ExtractionStarted() {
	if m == nil {
		return
	}
	m.ExtractionsInFlight.Inc()
}

func (m *Metrics) ExtractionFinished() {
	if m == nil {
		return
	}
	m.ExtractionsInFlight.Dec()
}
