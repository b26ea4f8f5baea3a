package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the engine's prometheus instruments.
type Metrics struct {
	RequestDuration       *prometheus.HistogramVec
	AssignmentTransitions *prometheus.CounterVec
	StaleTransitions      prometheus.Counter
	HabilitationsGranted  prometheus.Counter
	CertificationFailures prometheus.Counter
	EvaluationScores      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certrail_http_request_duration_ms",
			Help:    "Latency of admin API requests in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"path"}),
		AssignmentTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certrail_assignment_transitions_total",
			Help: "Total assignment status transitions applied, by target status",
		}, []string{"status"}),
		StaleTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certrail_stale_transitions_total",
			Help: "Total transitions rejected because a concurrent writer won the race",
		}),
		HabilitationsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certrail_habilitations_granted_total",
			Help: "Total habilitations granted from passed evaluations",
		}),
		CertificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certrail_certification_failures_total",
			Help: "Total certification paths marked failed",
		}),
		EvaluationScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certrail_evaluation_scores",
			Help:    "Distribution of submitted evaluation scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}

// Methods tolerate a nil receiver so tests can wire services without a
// metrics registry.

// ObserveRequestDuration records one request's latency.
func (m *Metrics) ObserveRequestDuration(path string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path).Observe(float64(d.Microseconds()) / 1000.0)
}

// IncrementAssignmentTransition counts a successful assignment transition.
func (m *Metrics) IncrementAssignmentTransition(status string) {
	if m == nil {
		return
	}
	m.AssignmentTransitions.WithLabelValues(status).Inc()
}

// IncrementStaleTransitions counts a lost CAS race.
func (m *Metrics) IncrementStaleTransitions() {
	if m == nil {
		return
	}
	m.StaleTransitions.Inc()
}

// RecordEvaluation counts outcome and score of a graded evaluation.
func (m *Metrics) RecordEvaluation(score int, passed bool) {
	if m == nil {
		return
	}
	m.EvaluationScores.Observe(float64(score))
	if passed {
		m.HabilitationsGranted.Inc()
	} else {
		m.CertificationFailures.Inc()
	}
}
