// Package regime classifies the latest indicator snapshot into a trend label
// and decides whether a strong downtrend should hold back new entries.
package regime

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Regime is the market trend label.
type Regime string

const (
	Bullish  Regime = "bullish"
	Bearish  Regime = "bearish"
	Sideways Regime = "sideways"
)

// Snapshot is the latest bar with its derived indicators. Nil or NaN
// indicator fields are treated as absent.
type Snapshot struct {
	Close     float64  `json:"close"`
	Volume    float64  `json:"volume"`
	RSI       *float64 `json:"rsi,omitempty"`
	FastMA    *float64 `json:"fast_ma,omitempty"`
	SlowMA    *float64 `json:"slow_ma,omitempty"`
	ADX       *float64 `json:"adx,omitempty"`
	VolumeSMA *float64 `json:"volume_sma,omitempty"`
}

// Float returns a pointer to v, for building snapshots.
func Float(v float64) *float64 { return &v }

func value(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}

// Config holds classifier thresholds.
type Config struct {
	// TrendThreshold is the ADX level below which the market is sideways.
	TrendThreshold float64 `json:"trend_threshold" yaml:"trend_threshold"`
	// StrongTrendThreshold is the ADX level a downtrend must exceed to suppress entries.
	StrongTrendThreshold float64 `json:"strong_trend_threshold" yaml:"strong_trend_threshold"`
	// OversoldOverride is the RSI level below which entries are never suppressed.
	OversoldOverride float64 `json:"oversold_override" yaml:"oversold_override"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		TrendThreshold:       25,
		StrongTrendThreshold: 35,
		OversoldOverride:     15,
	}
}

// Classifier is stateless apart from its thresholds.
type Classifier struct {
	cfg    Config
	logger zerolog.Logger
}

// NewClassifier builds a classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:    cfg,
		logger: log.With().Str("component", "regime").Logger(),
	}
}

// DetectRegime labels the snapshot. Missing indicators yield Sideways.
func (c *Classifier) DetectRegime(s Snapshot) Regime {
	fast, okFast := value(s.FastMA)
	slow, okSlow := value(s.SlowMA)
	adx, okADX := value(s.ADX)
	if !okFast || !okSlow || !okADX {
		return Sideways
	}
	if adx < c.cfg.TrendThreshold {
		return Sideways
	}
	switch {
	case fast > slow:
		return Bullish
	case fast < slow:
		return Bearish
	default:
		return Sideways
	}
}

// ShouldSuppressEntry is true only for a strong downtrend that is not
// deeply oversold. It never suppresses on missing data.
func (c *Classifier) ShouldSuppressEntry(s Snapshot) bool {
	fast, okFast := value(s.FastMA)
	slow, okSlow := value(s.SlowMA)
	adx, okADX := value(s.ADX)
	if !okFast || !okSlow || !okADX {
		return false
	}
	if fast >= slow {
		return false
	}
	if adx <= c.cfg.StrongTrendThreshold {
		return false
	}
	// An absent RSI does not override.
	if rsi, ok := value(s.RSI); ok && rsi < c.cfg.OversoldOverride {
		return false
	}
	c.logger.Debug().Float64("adx", adx).Msg("entry suppressed in strong downtrend")
	return true
}
