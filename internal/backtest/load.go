package backtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrNoTrades     = errors.New("no trades found in backtest result")
	ErrMissingField = errors.New("missing required field")
	ErrInvalidType  = errors.New("invalid data type")
)

type tradeRow struct {
	ProfitAbs *float64 `json:"profit_abs"`
}

type strategyResult struct {
	Trades         []tradeRow                 `json:"trades"`
	ResultsMetrics map[string]json.RawMessage `json:"results_metrics"`
}

type resultFile struct {
	Trades   []tradeRow      `json:"trades"`
	Strategy json.RawMessage `json:"strategy"`
}

// LoadProfits reads the absolute profit of each trade from a backtest result
// file. Top-level trades win; otherwise the first strategy with trades is used.
// A trade without profit_abs counts as zero.
func LoadProfits(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backtest result: %w", err)
	}
	return ParseProfits(data)
}

// ParseProfits is LoadProfits over raw JSON.
func ParseProfits(data []byte) ([]float64, error) {
	var file resultFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode backtest result: %w", err)
	}

	trades := file.Trades
	if len(trades) == 0 && len(file.Strategy) > 0 {
		names, strategies, err := orderedStrategies(file.Strategy)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if t := strategies[name].Trades; len(t) > 0 {
				trades = t
				break
			}
		}
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	profits := make([]float64, len(trades))
	for i, t := range trades {
		if t.ProfitAbs != nil {
			profits[i] = *t.ProfitAbs
		}
	}
	return profits, nil
}

// LoadMetrics reads results_metrics of the first strategy in a backtest
// result file.
func LoadMetrics(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("read backtest result: %w", err)
	}
	return ParseMetrics(data)
}

// ParseMetrics is LoadMetrics over raw JSON. String values are rejected.
func ParseMetrics(data []byte) (Metrics, error) {
	var file resultFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Metrics{}, fmt.Errorf("decode backtest result: %w", err)
	}
	if len(file.Strategy) == 0 {
		return Metrics{}, fmt.Errorf("%w: strategy", ErrMissingField)
	}
	names, strategies, err := orderedStrategies(file.Strategy)
	if err != nil {
		return Metrics{}, err
	}
	if len(names) == 0 {
		return Metrics{}, fmt.Errorf("%w: strategy entry", ErrMissingField)
	}
	raw := strategies[names[0]].ResultsMetrics
	if raw == nil {
		return Metrics{}, fmt.Errorf("%w: strategy.%s.results_metrics", ErrMissingField, names[0])
	}

	for key, v := range raw {
		if bytes.HasPrefix(bytes.TrimSpace(v), []byte(`"`)) {
			return Metrics{}, fmt.Errorf("%w for %q: expected number, got string %s", ErrInvalidType, key, v)
		}
	}

	var m Metrics
	fields := []struct {
		key string
		dst any
	}{
		{"win_rate", &m.WinRate},
		{"profit_factor", &m.ProfitFactor},
		{"sharpe", &m.SharpeRatio},
		{"max_drawdown", &m.MaxDrawdown},
		{"trades", &m.TotalTrades},
		{"total_profit_pct", &m.TotalProfitPct},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			return Metrics{}, fmt.Errorf("%w: %s", ErrMissingField, f.key)
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return Metrics{}, fmt.Errorf("%w for %q: %v", ErrInvalidType, f.key, err)
		}
	}
	return m, nil
}

// orderedStrategies decodes the strategy object keeping file order.
func orderedStrategies(raw json.RawMessage) ([]string, map[string]strategyResult, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode strategy: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: strategy must be an object", ErrInvalidType)
	}

	var names []string
	out := make(map[string]strategyResult)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode strategy name: %w", err)
		}
		name, _ := tok.(string)
		var sr strategyResult
		if err := dec.Decode(&sr); err != nil {
			return nil, nil, fmt.Errorf("decode strategy %s: %w", name, err)
		}
		names = append(names, name)
		out[name] = sr
	}
	return names, out, nil
}
