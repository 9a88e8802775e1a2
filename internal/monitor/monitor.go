// Package monitor turns risk events into alerts and exports decision metrics.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dca-core/internal/events"
)

// Monitor watches the bus and forwards risk alerts to a sink.
type Monitor struct {
	Bus  *events.Bus
	Sink AlertSink
}

// Start consumes events until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	logger := log.With().Str("component", "monitor").Logger()
	if m.Bus == nil || m.Sink == nil {
		logger.Info().Msg("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(events.EventAll, 64)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-stream:
				if !ok {
					return
				}
				if !env.Event.IsRiskAlert() {
					continue
				}
				if err := m.Sink.Send(FormatAlert(env)); err != nil {
					logger.Error().Err(err).Msg("deliver alert")
				}
			}
		}
	}()
}

// FormatAlert renders an envelope as a single line.
func FormatAlert(env events.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s context=%s", env.Time.Format(time.RFC3339), env.Event, env.Context)

	keys := make([]string, 0, len(env.Data))
	for k := range env.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, env.Data[k])
	}
	return b.String()
}
