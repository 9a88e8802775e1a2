package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dca-core/internal/events"
)

type captureSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *captureSink) Send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestMonitorForwardsOnlyRiskAlerts(t *testing.T) {
	bus := events.NewBus()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	(&Monitor{Bus: bus, Sink: sink}).Start(ctx)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(events.Envelope{Event: events.EventTradeClosed, Context: "BTC/USDT", Time: now})
	bus.Publish(events.Envelope{Event: events.EventCooldownTriggered, Context: "BTC/USDT", Time: now})

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if got := sink.count(); got != 1 {
		t.Fatalf("expected 1 alert, got %d", got)
	}
	if !strings.Contains(sink.msgs[0], "risk.cooldown_triggered") {
		t.Fatalf("unexpected alert %q", sink.msgs[0])
	}
}

func TestFormatAlertSortsData(t *testing.T) {
	env := events.Envelope{
		Event:   events.EventCircuitBreakerTripped,
		Context: "ETH/USDT",
		Time:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:    map[string]any{"peak": 50000, "balance": 42000},
	}
	want := "[2024-03-01T12:00:00Z] risk.circuit_breaker_tripped context=ETH/USDT balance=42000 peak=50000"
	if got := FormatAlert(env); got != want {
		t.Fatalf("FormatAlert=%q, want %q", got, want)
	}
}

// gatheredValue sums counter, gauge and histogram-count values of a metric family.
func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				total += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				total += metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		return total
	}
	return 0
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	var dropped uint64 = 3
	m := NewMetrics(reg, func() uint64 { return dropped })

	m.Decision("confirm_entry", "allowed")
	m.Decision("confirm_entry", "allowed")
	m.Rejection("slippage")
	m.SetContexts(4)
	m.MonteCarloRuns(100)
	m.NewTimer("adjust_position").Stop()

	tests := []struct {
		name string
		want float64
	}{
		{"dca_decisions_total", 2},
		{"dca_guard_rejections_total", 1},
		{"dca_active_contexts", 4},
		{"dca_monte_carlo_runs_total", 100},
		{"dca_events_dropped_total", 3},
		{"dca_decision_duration_seconds", 1},
	}
	for _, tt := range tests {
		if got := gatheredValue(t, reg, tt.name); got != tt.want {
			t.Fatalf("%s=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Decision("x", "y")
	m.Rejection("x")
	m.SetContexts(1)
	m.MonteCarloRuns(1)
	m.NewTimer("x").Stop()
}
