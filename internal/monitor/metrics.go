package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes decision-layer counters:
//
//	dca_decisions_total{operation,outcome}   decisions by hook and result
//	dca_guard_rejections_total{guard}        guard vetoes by guard name
//	dca_decision_duration_seconds{operation} time spent per decision
//	dca_active_contexts                      tracked trading contexts
//	dca_monte_carlo_runs_total               simulated runs
//	dca_events_dropped_total                 bus deliveries skipped for slow subscribers
type Metrics struct {
	decisions     *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	contexts      prometheus.Gauge
	monteCarlo    prometheus.Counter
	eventsDropped prometheus.CounterFunc
}

// NewMetrics registers the collectors on reg. dropped, if set, is polled for
// the dropped-events counter.
func NewMetrics(reg prometheus.Registerer, dropped func() uint64) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dca_decisions_total",
				Help: "Decisions taken by hook and outcome",
			},
			[]string{"operation", "outcome"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dca_guard_rejections_total",
				Help: "Guard vetoes by guard",
			},
			[]string{"guard"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dca_decision_duration_seconds",
				Help:    "Time spent computing a decision",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"operation"},
		),
		contexts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dca_active_contexts",
				Help: "Trading contexts holding risk state",
			},
		),
		monteCarlo: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dca_monte_carlo_runs_total",
				Help: "Monte Carlo runs simulated",
			},
		),
	}
	if dropped == nil {
		dropped = func() uint64 { return 0 }
	}
	m.eventsDropped = prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "dca_events_dropped_total",
			Help: "Event deliveries dropped because a subscriber was full",
		},
		func() float64 { return float64(dropped()) },
	)

	reg.MustRegister(m.decisions, m.rejections, m.latency, m.contexts, m.monteCarlo, m.eventsDropped)
	return m
}

// Decision counts one hook result.
func (m *Metrics) Decision(operation, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, outcome).Inc()
}

// Rejection counts one guard veto.
func (m *Metrics) Rejection(guard string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(guard).Inc()
}

// SetContexts records the number of tracked contexts.
func (m *Metrics) SetContexts(n int) {
	if m == nil {
		return
	}
	m.contexts.Set(float64(n))
}

// MonteCarloRuns adds n simulated runs.
func (m *Metrics) MonteCarloRuns(n int) {
	if m == nil {
		return
	}
	m.monteCarlo.Add(float64(n))
}

// Timer measures one decision.
type Timer struct {
	start     time.Time
	operation string
	m         *Metrics
}

// NewTimer starts timing operation.
func (m *Metrics) NewTimer(operation string) *Timer {
	return &Timer{start: time.Now(), operation: operation, m: m}
}

// Stop records elapsed time.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.m != nil {
		t.m.latency.WithLabelValues(t.operation).Observe(elapsed.Seconds())
	}
	return elapsed
}
