package indicators

import (
	"math"
	"testing"

	"dca-core/internal/regime"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMA(t *testing.T) {
	if v, ok := SMA([]float64{1, 2, 3, 4}, 2); !ok || !near(v, 3.5) {
		t.Fatalf("SMA=(%v, %v), want 3.5", v, ok)
	}
	if _, ok := SMA([]float64{1}, 2); ok {
		t.Fatalf("expected SMA to report insufficient data")
	}
}

func TestEMA(t *testing.T) {
	// seed = mean(1,2,3) = 2, k = 0.5: 2 -> 3 -> 4
	v, ok := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if !ok || !near(v, 4) {
		t.Fatalf("EMA=(%v, %v), want 4", v, ok)
	}
	if _, ok := EMA([]float64{1, 2}, 3); ok {
		t.Fatalf("expected EMA to report insufficient data")
	}
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 20)
	flat := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i)
		flat[i] = 10
	}
	if v, ok := RSI(rising, 14); !ok || v != 100 {
		t.Fatalf("RSI rising=(%v, %v), want 100", v, ok)
	}
	if v, ok := RSI(flat, 14); !ok || v != 50 {
		t.Fatalf("RSI flat=(%v, %v), want 50", v, ok)
	}

	alternating := []float64{10, 11, 10, 11, 10}
	if v, ok := RSI(alternating, 4); !ok || !near(v, 50) {
		t.Fatalf("RSI alternating=(%v, %v), want 50", v, ok)
	}
	if _, ok := RSI(rising[:14], 14); ok {
		t.Fatalf("expected RSI to need period+1 values")
	}
}

func trendBars(n int, step float64) []Bar {
	bars := make([]Bar, n)
	for i := range bars {
		c := 1000 + step*float64(i)
		bars[i] = Bar{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return bars
}

func TestADX(t *testing.T) {
	bars := trendBars(40, 2)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i], closes[i] = b.High, b.Low, b.Close
	}
	v, ok := ADX(highs, lows, closes, 14)
	if !ok || !near(v, 100) {
		t.Fatalf("ADX on a clean uptrend=(%v, %v), want 100", v, ok)
	}
	if _, ok := ADX(highs[:27], lows[:27], closes[:27], 14); ok {
		t.Fatalf("expected ADX to need 2*period bars")
	}
	if _, ok := ADX(highs[:28], lows[:28], closes[:28], 14); !ok {
		t.Fatalf("expected ADX to be ready at 2*period bars")
	}
}

func TestEngineWarmUpAndRegime(t *testing.T) {
	e := NewEngine(DefaultConfig())
	c := regime.NewClassifier(regime.DefaultConfig())

	var snap regime.Snapshot
	for i, b := range trendBars(30, 2) {
		snap = e.Update("BTC/USDT", b)
		if i == 0 && (snap.RSI != nil || snap.VolumeSMA != nil) {
			t.Fatalf("expected no indicators after one bar")
		}
	}
	if snap.SlowMA != nil || snap.FastMA != nil {
		t.Fatalf("expected moving averages to be warming up")
	}
	if snap.ADX == nil || snap.RSI == nil || snap.VolumeSMA == nil {
		t.Fatalf("expected short indicators to be ready after 30 bars: %+v", snap)
	}
	if got := c.DetectRegime(snap); got != regime.Sideways {
		t.Fatalf("expected sideways while averages warm up, got %s", got)
	}

	for _, b := range trendBars(250, 2)[30:] {
		snap = e.Update("BTC/USDT", b)
	}
	if snap.FastMA == nil || snap.SlowMA == nil {
		t.Fatalf("expected moving averages after 250 bars")
	}
	if got := c.DetectRegime(snap); got != regime.Bullish {
		t.Fatalf("DetectRegime=%s, want bullish", got)
	}
	if got := e.Len("BTC/USDT"); got != 250 {
		t.Fatalf("Len=%d, want 250", got)
	}
	e.Reset("BTC/USDT")
	if got := e.Len("BTC/USDT"); got != 0 {
		t.Fatalf("Len after reset=%d, want 0", got)
	}
}

func TestEngineTrimsWindow(t *testing.T) {
	e := NewEngine(Config{FastPeriod: 2, SlowPeriod: 3, ADXPeriod: 2, RSIPeriod: 2, VolumePeriod: 2, Window: 1})
	for _, b := range trendBars(10, 1) {
		e.Update("X", b)
	}
	if got := e.Len("X"); got != 4 {
		t.Fatalf("Len=%d, want window widened to 4", got)
	}
}
