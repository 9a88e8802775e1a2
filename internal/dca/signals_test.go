package dca

import (
	"testing"

	"dca-core/internal/regime"
)

func TestEntrySignal(t *testing.T) {
	p := newPolicy(nil)
	f := regime.Float

	tests := []struct {
		name string
		s    regime.Snapshot
		want bool
	}{
		{"oversold with volume", regime.Snapshot{Volume: 100, RSI: f(40), VolumeSMA: f(100)}, true},
		{"rsi at max", regime.Snapshot{Volume: 100, RSI: f(45), VolumeSMA: f(100)}, true},
		{"rsi too high", regime.Snapshot{Volume: 100, RSI: f(46), VolumeSMA: f(100)}, false},
		{"volume too low", regime.Snapshot{Volume: 90, RSI: f(40), VolumeSMA: f(100)}, false},
		{"missing volume sma", regime.Snapshot{Volume: 100, RSI: f(40)}, false},
		{"missing rsi", regime.Snapshot{Volume: 100, VolumeSMA: f(100)}, false},
		{"strong bear ignored by default", regime.Snapshot{Volume: 100, RSI: f(40), VolumeSMA: f(100), FastMA: f(90), SlowMA: f(100), ADX: f(40)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EntrySignal(tt.s); got != tt.want {
				t.Fatalf("EntrySignal=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntrySignalRegimeFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SuppressBearEntries = true
	p := NewPolicy(cfg, nil, nil, regime.NewClassifier(regime.DefaultConfig()))
	f := regime.Float

	bear := regime.Snapshot{Volume: 100, RSI: f(40), VolumeSMA: f(100), FastMA: f(90), SlowMA: f(100), ADX: f(40)}
	if p.EntrySignal(bear) {
		t.Fatalf("expected strong downtrend to suppress entry")
	}
	bear.ADX = f(30)
	if !p.EntrySignal(bear) {
		t.Fatalf("expected moderate downtrend to allow entry")
	}
}

func TestExitSignal(t *testing.T) {
	p := newPolicy(nil)
	if !p.ExitSignal(regime.Snapshot{RSI: regime.Float(70)}) {
		t.Fatalf("expected RSI 70 to exit")
	}
	if p.ExitSignal(regime.Snapshot{RSI: regime.Float(69.9)}) {
		t.Fatalf("expected RSI 69.9 not to exit")
	}
	if p.ExitSignal(regime.Snapshot{}) {
		t.Fatalf("expected missing RSI not to exit")
	}
}
