package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formflow/pkg/verify"
)

// Metrics holds Prometheus collectors for form sessions. It implements the
// session observer so it can be passed straight to session.WithObserver.
type Metrics struct {
	LookupsIssued    prometheus.Counter
	LookupsApplied   *prometheus.CounterVec
	LookupsDiscarded prometheus.Counter
	LookupLatency    *prometheus.HistogramVec
	Submissions      *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "formflow"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LookupsIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lookup",
				Name:      "issued_total",
				Help:      "Total postal code lookups started",
			},
		),
		LookupsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lookup",
				Name:      "applied_total",
				Help:      "Total lookup results applied to a form, by status",
			},
			[]string{"status"}, // confirmed, not_found, failed
		),
		LookupsDiscarded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lookup",
				Name:      "discarded_total",
				Help:      "Total lookup results discarded as stale",
			},
		),
		LookupLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "lookup",
				Name:      "duration_seconds",
				Help:      "Latency of applied postal code lookups",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"status"},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "form",
				Name:      "submissions_total",
				Help:      "Total submission decisions, by form and outcome",
			},
			[]string{"form", "outcome"}, // accepted, rejected, pending
		),
	}
}

func (m *Metrics) LookupIssued() {
	m.LookupsIssued.Inc()
}

func (m *Metrics) LookupApplied(status verify.Status, latency time.Duration) {
	m.LookupsApplied.WithLabelValues(status.String()).Inc()
	m.LookupLatency.WithLabelValues(status.String()).Observe(latency.Seconds())
}

func (m *Metrics) LookupDiscarded() {
	m.LookupsDiscarded.Inc()
}

func (m *Metrics) SubmissionDecided(form, outcome string) {
	m.Submissions.WithLabelValues(form, outcome).Inc()
}
