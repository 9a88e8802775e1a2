// Package engine is the single entry point the host and the API use to reach
// the decision layer. Every hook is scoped by a trading context id, usually
// the pair.
package engine

import (
	"context"
	"errors"

	"dca-core/internal/dca"
	"dca-core/internal/indicators"
	"dca-core/internal/regime"
)

// ErrContextRequired is returned when a hook is called without a context id.
var ErrContextRequired = errors.New("trading context id is required")

// ErrNoTradeLog is returned when a simulation asks for a pair but no trade
// log is configured.
var ErrNoTradeLog = errors.New("no trade log configured")

// TradeSource reads closed trade profits, oldest first.
type TradeSource interface {
	ClosedTradeProfits(ctx context.Context, pair string) ([]float64, error)
}

// Service defines the decision operations exposed to the host.
type Service interface {
	// Entry & sizing hooks
	RecordExpectedPrice(ctx context.Context, pair string, price float64) error
	ConfirmEntry(ctx context.Context, contextID string, req EntryRequest) (*EntryDecision, error)
	StakeAmount(ctx context.Context, contextID string, in dca.StakeInput) (*StakeDecision, error)

	// Position hooks
	AdjustPosition(ctx context.Context, contextID string, in dca.AdjustInput) (dca.Decision, error)
	ConfirmExit(ctx context.Context, contextID string, in dca.ExitInput) (dca.ExitOutcome, error)
	UpdateBalance(ctx context.Context, contextID string, balance float64) (*RiskStatus, error)

	// Queries
	RiskStatus(ctx context.Context, contextID string, balance, startingBalance float64) (*RiskStatus, error)
	ListContexts(ctx context.Context) []string
	Regime(ctx context.Context, snap regime.Snapshot) RegimeReport
	IngestBar(ctx context.Context, symbol string, bar indicators.Bar) (*SignalReport, error)
	CheckSlippage(ctx context.Context, expected, actual float64) SlippageReport

	// Validation
	SimulateMonteCarlo(ctx context.Context, req MonteCarloRequest) (*MonteCarloReport, error)

	// System
	GetSystemStatus(ctx context.Context) *SystemStatus
}
