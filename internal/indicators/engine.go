// Package indicators derives the regime snapshot inputs from raw bars.
package indicators

import (
	"sync"

	"dca-core/internal/regime"
)

// Bar is one OHLCV candle.
type Bar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Config sets the indicator periods and the per-symbol history length.
type Config struct {
	FastPeriod   int `json:"fast_period" yaml:"fast_period"`
	SlowPeriod   int `json:"slow_period" yaml:"slow_period"`
	ADXPeriod    int `json:"adx_period" yaml:"adx_period"`
	RSIPeriod    int `json:"rsi_period" yaml:"rsi_period"`
	VolumePeriod int `json:"volume_period" yaml:"volume_period"`
	Window       int `json:"window" yaml:"window"`
}

// DefaultConfig returns EMA50/EMA200, ADX14, RSI14 and volume SMA20.
func DefaultConfig() Config {
	return Config{
		FastPeriod:   50,
		SlowPeriod:   200,
		ADXPeriod:    14,
		RSIPeriod:    14,
		VolumePeriod: 20,
		Window:       500,
	}
}

type series struct {
	highs, lows, closes, volumes []float64
}

// Engine maintains per-symbol bar windows.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	series map[string]*series
}

// NewEngine builds an engine. The window is widened to fit the slowest indicator.
func NewEngine(cfg Config) *Engine {
	minWindow := cfg.SlowPeriod
	if w := 2 * cfg.ADXPeriod; w > minWindow {
		minWindow = w
	}
	if cfg.Window < minWindow {
		cfg.Window = minWindow
	}
	return &Engine{
		cfg:    cfg,
		series: make(map[string]*series),
	}
}

func trim(arr []float64, n int) []float64 {
	if len(arr) > n {
		return arr[len(arr)-n:]
	}
	return arr
}

// Update ingests a bar and returns the snapshot for the latest bar. Indicators
// that are still warming up are left nil.
func (e *Engine) Update(symbol string, bar Bar) regime.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.series[symbol]
	if !ok {
		s = &series{}
		e.series[symbol] = s
	}
	w := e.cfg.Window
	s.highs = trim(append(s.highs, bar.High), w)
	s.lows = trim(append(s.lows, bar.Low), w)
	s.closes = trim(append(s.closes, bar.Close), w)
	s.volumes = trim(append(s.volumes, bar.Volume), w)

	snap := regime.Snapshot{Close: bar.Close, Volume: bar.Volume}
	if v, ok := EMA(s.closes, e.cfg.FastPeriod); ok {
		snap.FastMA = regime.Float(v)
	}
	if v, ok := EMA(s.closes, e.cfg.SlowPeriod); ok {
		snap.SlowMA = regime.Float(v)
	}
	if v, ok := ADX(s.highs, s.lows, s.closes, e.cfg.ADXPeriod); ok {
		snap.ADX = regime.Float(v)
	}
	if v, ok := RSI(s.closes, e.cfg.RSIPeriod); ok {
		snap.RSI = regime.Float(v)
	}
	if v, ok := SMA(s.volumes, e.cfg.VolumePeriod); ok {
		snap.VolumeSMA = regime.Float(v)
	}
	return snap
}

// Len returns how many bars are held for symbol.
func (e *Engine) Len(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.series[symbol]; ok {
		return len(s.closes)
	}
	return 0
}

// Reset drops the history for symbol.
func (e *Engine) Reset(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.series, symbol)
}
