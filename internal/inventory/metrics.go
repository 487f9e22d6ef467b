package inventory

import (
	"github.com/prometheus/client_golang/prometheus"

	"it-inventory-api/internal/lifecycle"
)

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	sweepRuns     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	emails        *prometheus.CounterVec
}

// NewMetrics registers the domain counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_transitions_total",
				Help: "Lifecycle transitions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		sweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warranty_sweep_runs_total",
				Help: "Warranty sweep runs by result",
			},
			[]string{"result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warranty_notifications_total",
				Help: "Warranty notifications emitted by tier",
			},
			[]string{"tier"},
		),
		emails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_emails_total",
				Help: "Notification emails by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	reg.MustRegister(m.transitions, m.sweepRuns, m.notifications, m.emails)
	return m
}

func (m *Metrics) transition(action lifecycle.Action, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(lifecycle.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.transitions.WithLabelValues(string(action), outcome).Inc()
}

func (m *Metrics) sweepRun(result string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) notification(tier lifecycle.Tier, n int) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(tier)).Add(float64(n))
}

func (m *Metrics) email(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.emails.WithLabelValues(kind, outcome).Inc()
}
