// Package metrics exposes Prometheus collectors for the record dispatcher
// and query engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	DispatchOutcomes *prometheus.CounterVec
	PlanKinds        *prometheus.CounterVec
	LockWait         prometheus.Histogram
	LockTimeouts     prometheus.Counter
	QueryDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_dispatch_total",
			Help: "Dispatched commands by action key and outcome.",
		}, []string{"action_key", "outcome"}),
		PlanKinds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_dispatch_plan_total",
			Help: "Applied mutation plans by kind.",
		}, []string{"plan"}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tempora_slot_lock_wait_seconds",
			Help:    "Time spent waiting for a slot lock.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5},
		}),
		LockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempora_slot_lock_timeouts_total",
			Help: "Slot lock acquisitions that timed out.",
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tempora_query_duration_seconds",
			Help:    "Read query latency by query type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
	}
	if reg != nil {
		reg.MustRegister(m.DispatchOutcomes, m.PlanKinds, m.LockWait, m.LockTimeouts, m.QueryDuration)
	}
	return m
}

func (m *Metrics) ObserveDispatch(actionKey, outcome string) {
	if m == nil {
		return
	}
	m.DispatchOutcomes.WithLabelValues(actionKey, outcome).Inc()
}

func (m *Metrics) ObservePlan(plan string) {
	if m == nil {
		return
	}
	m.PlanKinds.WithLabelValues(plan).Inc()
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}

func (m *Metrics) ObserveLockTimeout() {
	if m == nil {
		return
	}
	m.LockTimeouts.Inc()
}

func (m *Metrics) ObserveQuery(query string, d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query).Observe(d.Seconds())
}
