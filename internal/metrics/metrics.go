// Package metrics exposes Prometheus collectors for the polling
// scheduler and delivery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aocbot"

// Metrics bundles the collectors the poller and sink drive. A nil
// *Metrics is valid and records nothing, so tests can pass nil.
type Metrics struct {
	pollsTotal      *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	activeTasks     prometheus.Gauge
}

// New registers the collectors on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll attempts by result (success, error, auth_failure).",
		}, []string{"result"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Detected leaderboard change events by kind.",
		}, []string{"kind"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts by result.",
		}, []string{"result"}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_tasks",
			Help:      "Number of running polling loops.",
		}),
	}
	reg.MustRegister(m.pollsTotal, m.eventsTotal, m.deliveriesTotal, m.activeTasks)
	return m
}

// ObservePoll records one poll attempt outcome.
func (m *Metrics) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(result).Inc()
}

// ObserveEvents records detected change events by kind.
func (m *Metrics) ObserveEvents(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveDelivery records one delivery attempt outcome.
func (m *Metrics) ObserveDelivery(result string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(result).Inc()
}

// SetActiveTasks updates the running loop gauge.
func (m *Metrics) SetActiveTasks(n int) {
	if m == nil {
		return
	}
	m.activeTasks.Set(float64(n))
}
