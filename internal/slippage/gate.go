// Package slippage rejects fills that drift too far from the expected price.
package slippage

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the slippage tolerance.
type Config struct {
	// MaxSlippagePercent is expressed in percent (0.5 = 0.5%).
	MaxSlippagePercent float64 `json:"max_slippage_percent" yaml:"max_slippage_percent"`
}

// DefaultConfig returns the production tolerance.
func DefaultConfig() Config {
	return Config{MaxSlippagePercent: 0.5}
}

// Gate is a stateless price-deviation check.
type Gate struct {
	cfg    Config
	logger zerolog.Logger
}

// NewGate builds a gate with the given tolerance.
func NewGate(cfg Config) *Gate {
	return &Gate{
		cfg:    cfg,
		logger: log.With().Str("component", "slippage").Logger(),
	}
}

// Config returns the gate tolerance.
func (g *Gate) Config() Config { return g.cfg }

// Percent returns the signed deviation of actual from expected in percent.
// A zero expected price yields zero.
func Percent(expected, actual float64) float64 {
	if expected == 0 {
		return 0
	}
	return (actual - expected) / expected * 100
}

// Check reports whether actual is within tolerance of expected. The boundary
// is inclusive and rejection is symmetric in direction.
func (g *Gate) Check(expected, actual float64) bool {
	dev := Percent(expected, actual)
	if math.Abs(dev) > g.cfg.MaxSlippagePercent {
		g.logger.Info().
			Float64("expected", expected).
			Float64("actual", actual).
			Float64("deviation_pct", dev).
			Float64("max_pct", g.cfg.MaxSlippagePercent).
			Msg("slippage rejected")
		return false
	}
	return true
}
