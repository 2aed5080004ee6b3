package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "postgate"

// Metrics holds the queue instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Decisions   *prometheus.CounterVec
	Sweeps      *prometheus.CounterVec
	Expired     prometheus.Counter
	Removed     *prometheus.CounterVec
	Pending     prometheus.Gauge
}

// NewMetrics creates the queue instruments and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "queue",
				Name:      "submissions_total",
				Help:      "Submissions by result (accepted, invalid, error).",
			},
			[]string{"result"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "queue",
				Name:      "decisions_total",
				Help:      "Manual approve/reject calls by outcome.",
			},
			[]string{"outcome"},
		),
		Sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sweeper",
				Name:      "runs_total",
				Help:      "Expiry sweeps by result (ok, error).",
			},
			[]string{"result"},
		),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sweeper",
			Name:      "expired_total",
			Help:      "Pending items rejected because their deadline passed.",
		}),
		Removed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "queue",
				Name:      "removed_total",
				Help:      "Items physically deleted by retention (cleanup, purge).",
			},
			[]string{"reason"},
		),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "queue",
			Name:      "pending_items",
			Help:      "Pending items observed at the last stats refresh.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Submissions, m.Decisions, m.Sweeps, m.Expired, m.Removed, m.Pending)
	}
	return m
}

func (m *Metrics) submission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) decision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) sweep(expired int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Sweeps.WithLabelValues("error").Inc()
		return
	}
	m.Sweeps.WithLabelValues("ok").Inc()
	m.Expired.Add(float64(expired))
}

func (m *Metrics) removed(reason string, count int64) {
	if m != nil && count > 0 {
		m.Removed.WithLabelValues(reason).Add(float64(count))
	}
}

func (m *Metrics) pending(count int) {
	if m != nil {
		m.Pending.Set(float64(count))
	}
}
