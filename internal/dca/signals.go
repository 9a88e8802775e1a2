package dca

import (
	"math"

	"dca-core/internal/regime"
)

func present(p *float64) bool { return p != nil && !math.IsNaN(*p) }

// EntrySignal fires on a loosely oversold RSI with volume above a share of
// its moving average. Missing indicators never fire.
func (p *Policy) EntrySignal(s regime.Snapshot) bool {
	if !present(s.RSI) || !present(s.VolumeSMA) {
		return false
	}
	if *s.RSI > p.cfg.EntryRSIMax || s.Volume <= p.cfg.EntryVolumeFactor*(*s.VolumeSMA) {
		return false
	}
	if p.cfg.SuppressBearEntries && p.classifier != nil && p.classifier.ShouldSuppressEntry(s) {
		return false
	}
	return true
}

// ExitSignal fires on an overbought RSI.
func (p *Policy) ExitSignal(s regime.Snapshot) bool {
	return present(s.RSI) && *s.RSI >= p.cfg.ExitRSIMin
}
