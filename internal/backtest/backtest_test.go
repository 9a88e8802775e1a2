package backtest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	c := DefaultCriteria()
	tests := []struct {
		name       string
		m          Metrics
		wantMin    bool
		wantTarget bool
		wantDetail string
	}{
		{
			name:       "passes target",
			m:          Metrics{WinRate: 0.6, ProfitFactor: 1.8, SharpeRatio: 1.0, MaxDrawdown: 10, TotalTrades: 80},
			wantMin:    true,
			wantTarget: true,
			wantDetail: "All criteria passed",
		},
		{
			name:       "meets minimum only",
			m:          Metrics{WinRate: 0.52, ProfitFactor: 1.3, SharpeRatio: 0.6, MaxDrawdown: 18, TotalTrades: 40},
			wantMin:    true,
			wantTarget: false,
			wantDetail: "win_rate 52.00% meets minimum but below target 55.00%",
		},
		{
			name:       "fails minimum drawdown",
			m:          Metrics{WinRate: 0.6, ProfitFactor: 1.8, SharpeRatio: 1.0, MaxDrawdown: 25, TotalTrades: 80},
			wantMin:    false,
			wantTarget: false,
			wantDetail: "max_drawdown 25.00% exceeds minimum threshold 20.00%",
		},
		{
			name:       "too few trades",
			m:          Metrics{WinRate: 0.6, ProfitFactor: 1.8, SharpeRatio: 1.0, MaxDrawdown: 10, TotalTrades: 10},
			wantMin:    false,
			wantTarget: false,
			wantDetail: "total_trades 10 is below minimum threshold 30",
		},
		{
			name:       "boundaries pass",
			m:          Metrics{WinRate: 0.55, ProfitFactor: 1.5, SharpeRatio: 0.8, MaxDrawdown: 15, TotalTrades: 50},
			wantMin:    true,
			wantTarget: true,
			wantDetail: "All criteria passed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Evaluate(tt.m)
			if res.PassedMinimum != tt.wantMin || res.PassedTarget != tt.wantTarget {
				t.Fatalf("Evaluate=%+v, want min=%v target=%v", res, tt.wantMin, tt.wantTarget)
			}
			found := false
			for _, d := range res.Details {
				if strings.Contains(d, tt.wantDetail) {
					found = true
				}
			}
			if !found {
				t.Fatalf("details %q missing %q", res.Details, tt.wantDetail)
			}
		})
	}
}

func TestParseProfits(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []float64
	}{
		{"top level", `{"trades":[{"profit_abs":1.5},{"profit_abs":-2}]}`, []float64{1.5, -2}},
		{"strategy trades", `{"strategy":{"Empty":{"trades":[]},"DCAStrategy":{"trades":[{"profit_abs":3},{}]}}}`, []float64{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfits([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseProfits: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	if _, err := ParseProfits([]byte(`{"trades":[]}`)); !errors.Is(err, ErrNoTrades) {
		t.Fatalf("expected ErrNoTrades, got %v", err)
	}
	if _, err := ParseProfits([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

const metricsJSON = `{
  "strategy": {
    "DCAStrategy": {
      "results_metrics": {
        "win_rate": 0.58,
        "profit_factor": 1.6,
        "sharpe": 0.9,
        "max_drawdown": 12.5,
        "trades": 64,
        "total_profit_pct": 18.2,
        "extra": null
      }
    },
    "Other": {"results_metrics": {"win_rate": 0.1}}
  }
}`

func TestParseMetricsUsesFirstStrategy(t *testing.T) {
	m, err := ParseMetrics([]byte(metricsJSON))
	if err != nil {
		t.Fatalf("ParseMetrics: %v", err)
	}
	want := Metrics{WinRate: 0.58, ProfitFactor: 1.6, SharpeRatio: 0.9, MaxDrawdown: 12.5, TotalTrades: 64, TotalProfitPct: 18.2}
	if m != want {
		t.Fatalf("ParseMetrics=%+v, want %+v", m, want)
	}
}

func TestParseMetricsErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"no strategy", `{}`, ErrMissingField},
		{"missing field", `{"strategy":{"S":{"results_metrics":{"win_rate":0.5}}}}`, ErrMissingField},
		{"string value", `{"strategy":{"S":{"results_metrics":{"win_rate":"0.5"}}}}`, ErrInvalidType},
		{"no metrics", `{"strategy":{"S":{}}}`, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMetrics([]byte(tt.json)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	if err := os.WriteFile(path, []byte(metricsJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadMetrics(path); err != nil {
		t.Fatalf("LoadMetrics: %v", err)
	}
	if _, err := LoadProfits(path); !errors.Is(err, ErrNoTrades) {
		t.Fatalf("expected ErrNoTrades, got %v", err)
	}
	if _, err := LoadProfits(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
