package events

import "time"

// Event enumerates the topics published by the decision layer.
type Event string

const (
	// EventAll receives every published event.
	EventAll Event = "*"

	EventCooldownTriggered     Event = "risk.cooldown_triggered"
	EventCircuitBreakerTripped Event = "risk.circuit_breaker_tripped"
	EventDailyLossExceeded     Event = "risk.daily_loss_exceeded"
	EventLossStreakReached     Event = "risk.loss_streak_reached"
	EventEntryRejected         Event = "entry.rejected"
	EventStakeVetoed           Event = "stake.vetoed"
	EventPositionAdjusted      Event = "position.adjusted"
	EventTradeClosed           Event = "trade.closed"
)

// Envelope is what subscribers receive.
type Envelope struct {
	Event   Event          `json:"event"`
	Context string         `json:"context"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data,omitempty"`
}

// IsRiskAlert reports whether e is a guard tripping.
func (e Event) IsRiskAlert() bool {
	switch e {
	case EventCooldownTriggered, EventCircuitBreakerTripped, EventDailyLossExceeded, EventLossStreakReached:
		return true
	}
	return false
}
