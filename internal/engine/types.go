package engine

import (
	"time"

	"dca-core/internal/montecarlo"
	"dca-core/internal/regime"
	"dca-core/internal/risk"
)

// EntryRequest is the final check before an entry order is placed.
type EntryRequest struct {
	Pair string  `json:"pair"`
	Rate float64 `json:"rate"`
}

// EntryDecision reports whether the entry may proceed.
type EntryDecision struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Expected *float64 `json:"expected_price,omitempty"`
	Slippage *float64 `json:"slippage_pct,omitempty"`
}

// StakeDecision is the sized stake, or a veto.
type StakeDecision struct {
	Allowed bool    `json:"allowed"`
	Stake   float64 `json:"stake"`
}

// RiskStatus is the state of one context with every guard evaluated.
type RiskStatus struct {
	Context string           `json:"context"`
	State   risk.State       `json:"state"`
	Guards  risk.GuardReport `json:"guards"`
	Allowed bool             `json:"allowed"`
}

// RegimeReport classifies one snapshot.
type RegimeReport struct {
	Regime        regime.Regime `json:"regime"`
	SuppressEntry bool          `json:"suppress_entry"`
}

// SignalReport is the outcome of ingesting one bar.
type SignalReport struct {
	Symbol        string          `json:"symbol"`
	Snapshot      regime.Snapshot `json:"snapshot"`
	Regime        regime.Regime   `json:"regime"`
	SuppressEntry bool            `json:"suppress_entry"`
	EntrySignal   bool            `json:"entry_signal"`
	ExitSignal    bool            `json:"exit_signal"`
}

// SlippageReport is the outcome of a standalone slippage check.
type SlippageReport struct {
	Accepted     bool    `json:"accepted"`
	DeviationPct float64 `json:"deviation_pct"`
	MaxPct       float64 `json:"max_pct"`
}

// MonteCarloRequest asks for a simulation. A nil Runs or Seed falls back to
// the configured default; an explicit run count must be positive. When Trades is empty and Pair is set, the
// closed trades of Pair are read from the trade log.
type MonteCarloRequest struct {
	Trades []float64 `json:"trades"`
	Pair   string    `json:"pair,omitempty"`
	Runs   *int      `json:"runs,omitempty"`
	Seed   *int64    `json:"seed,omitempty"`
}

// MonteCarloReport wraps an outcome with its run metadata.
type MonteCarloReport struct {
	RunID    string             `json:"run_id"`
	Pair     string             `json:"pair,omitempty"`
	Seed     int64              `json:"seed"`
	Outcome  montecarlo.Outcome `json:"outcome"`
	Duration time.Duration      `json:"duration_ns"`
}

// SystemStatus represents the system runtime status.
type SystemStatus struct {
	Version        string    `json:"version"`
	Contexts       int       `json:"contexts"`
	ExpectedPrices int       `json:"expected_prices"`
	ServerTime     time.Time `json:"server_time"`
}
