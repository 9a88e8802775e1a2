package monitor

import "github.com/rs/zerolog"

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to a logger at warn level.
type LogSink struct {
	Logger zerolog.Logger
}

// Send implements AlertSink.
func (s LogSink) Send(message string) error {
	s.Logger.Warn().Str("alert", message).Msg("risk alert")
	return nil
}
