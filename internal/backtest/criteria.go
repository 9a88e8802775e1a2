// Package backtest reads finished backtest results and grades them against
// acceptance criteria.
package backtest

import "fmt"

// Metrics are the headline numbers of one backtest.
type Metrics struct {
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe"`
	MaxDrawdown    float64 `json:"max_drawdown"` // percent
	TotalTrades    int     `json:"trades"`
	TotalProfitPct float64 `json:"total_profit_pct"`
}

// Thresholds is one tier of acceptance criteria.
type Thresholds struct {
	WinRate      float64
	ProfitFactor float64
	SharpeRatio  float64
	MaxDrawdown  float64
	TotalTrades  int
}

// Criteria pairs the failing tier with the aspirational one.
type Criteria struct {
	Minimum Thresholds
	Target  Thresholds
}

// DefaultCriteria returns the go-live criteria.
func DefaultCriteria() Criteria {
	return Criteria{
		Minimum: Thresholds{WinRate: 0.50, ProfitFactor: 1.2, SharpeRatio: 0.5, MaxDrawdown: 20, TotalTrades: 30},
		Target:  Thresholds{WinRate: 0.55, ProfitFactor: 1.5, SharpeRatio: 0.8, MaxDrawdown: 15, TotalTrades: 50},
	}
}

// Result is the grading outcome.
type Result struct {
	PassedMinimum bool     `json:"passed_minimum"`
	PassedTarget  bool     `json:"passed_target"`
	Details       []string `json:"details"`
}

// Evaluate grades m. Target can only pass when minimum passes. Details list
// every minimum failure and every target miss that met the minimum.
func (c Criteria) Evaluate(m Metrics) Result {
	res := Result{PassedMinimum: true, PassedTarget: true}
	floor, tgt := c.Minimum, c.Target

	if m.WinRate < floor.WinRate {
		res.PassedMinimum = false
		res.Details = append(res.Details, fmt.Sprintf("win_rate %.2f%% is below minimum threshold %.2f%%", m.WinRate*100, floor.WinRate*100))
	}
	if m.ProfitFactor < floor.ProfitFactor {
		res.PassedMinimum = false
		res.Details = append(res.Details, fmt.Sprintf("profit_factor %.2f is below minimum threshold %.2f", m.ProfitFactor, floor.ProfitFactor))
	}
	if m.SharpeRatio < floor.SharpeRatio {
		res.PassedMinimum = false
		res.Details = append(res.Details, fmt.Sprintf("sharpe_ratio %.2f is below minimum threshold %.2f", m.SharpeRatio, floor.SharpeRatio))
	}
	if m.MaxDrawdown > floor.MaxDrawdown {
		res.PassedMinimum = false
		res.Details = append(res.Details, fmt.Sprintf("max_drawdown %.2f%% exceeds minimum threshold %.2f%%", m.MaxDrawdown, floor.MaxDrawdown))
	}
	if m.TotalTrades < floor.TotalTrades {
		res.PassedMinimum = false
		res.Details = append(res.Details, fmt.Sprintf("total_trades %d is below minimum threshold %d", m.TotalTrades, floor.TotalTrades))
	}

	if m.WinRate < tgt.WinRate {
		res.PassedTarget = false
		if m.WinRate >= floor.WinRate {
			res.Details = append(res.Details, fmt.Sprintf("win_rate %.2f%% meets minimum but below target %.2f%%", m.WinRate*100, tgt.WinRate*100))
		}
	}
	if m.ProfitFactor < tgt.ProfitFactor {
		res.PassedTarget = false
		if m.ProfitFactor >= floor.ProfitFactor {
			res.Details = append(res.Details, fmt.Sprintf("profit_factor %.2f meets minimum but below target %.2f", m.ProfitFactor, tgt.ProfitFactor))
		}
	}
	if m.SharpeRatio < tgt.SharpeRatio {
		res.PassedTarget = false
		if m.SharpeRatio >= floor.SharpeRatio {
			res.Details = append(res.Details, fmt.Sprintf("sharpe_ratio %.2f meets minimum but below target %.2f", m.SharpeRatio, tgt.SharpeRatio))
		}
	}
	if m.MaxDrawdown > tgt.MaxDrawdown {
		res.PassedTarget = false
		if m.MaxDrawdown <= floor.MaxDrawdown {
			res.Details = append(res.Details, fmt.Sprintf("max_drawdown %.2f%% meets minimum but exceeds target %.2f%%", m.MaxDrawdown, tgt.MaxDrawdown))
		}
	}
	if m.TotalTrades < tgt.TotalTrades {
		res.PassedTarget = false
		if m.TotalTrades >= floor.TotalTrades {
			res.Details = append(res.Details, fmt.Sprintf("total_trades %d meets minimum but below target %d", m.TotalTrades, tgt.TotalTrades))
		}
	}

	if !res.PassedMinimum {
		res.PassedTarget = false
	}
	if len(res.Details) == 0 {
		res.Details = append(res.Details, "All criteria passed (both minimum and target)")
	}
	return res
}
