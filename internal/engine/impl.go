package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dca-core/internal/dca"
	"dca-core/internal/events"
	"dca-core/internal/indicators"
	"dca-core/internal/monitor"
	"dca-core/internal/montecarlo"
	"dca-core/internal/regime"
	"dca-core/internal/risk"
	"dca-core/internal/slippage"
	"dca-core/pkg/cache"
	"dca-core/pkg/db"
)

// Impl implements the Service interface by composing the decision modules.
type Impl struct {
	registry   *risk.Registry
	classifier *regime.Classifier
	gate       *slippage.Gate
	policy     *dca.Policy
	prices     *cache.PriceBook
	indicators *indicators.Engine
	simulator  *montecarlo.Simulator
	trades     TradeSource
	bus        *events.Bus
	metrics    *monitor.Metrics

	mcRuns          int
	mcSeed          int64
	startingBalance float64
	idleTTL         time.Duration

	now    func() time.Time
	logger zerolog.Logger
	meta   SystemStatus
}

// Config holds the configuration for creating an engine implementation.
type Config struct {
	Risk       risk.Config
	DCA        dca.Config
	Regime     regime.Config
	Slippage   slippage.Config
	Indicators indicators.Config

	MonteCarloRuns    int
	MonteCarloSeed    int64
	MonteCarloWorkers int

	// StartingBalance feeds the daily loss guard when callers send none.
	StartingBalance float64
	// ContextIdleTTL drops contexts idle for longer; zero keeps them forever.
	ContextIdleTTL time.Duration

	// Trades backs pair-based Monte Carlo requests; nil disables them.
	Trades  TradeSource
	Bus     *events.Bus
	Metrics *monitor.Metrics
	Meta    SystemStatus

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewImpl creates a new engine implementation.
func NewImpl(cfg Config) *Impl {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	runs := cfg.MonteCarloRuns
	if runs <= 0 {
		runs = 100
	}

	classifier := regime.NewClassifier(cfg.Regime)
	gate := slippage.NewGate(cfg.Slippage)
	prices := cache.NewPriceBook()
	prices.SetClock(now)
	registry := risk.NewRegistry(cfg.Risk)
	registry.SetClock(now)

	return &Impl{
		registry:        registry,
		classifier:      classifier,
		gate:            gate,
		policy:          dca.NewPolicy(cfg.DCA, gate, prices, classifier),
		prices:          prices,
		indicators:      indicators.NewEngine(cfg.Indicators),
		simulator:       montecarlo.NewSimulator(cfg.MonteCarloWorkers),
		trades:          cfg.Trades,
		bus:             bus,
		metrics:         cfg.Metrics,
		mcRuns:          runs,
		mcSeed:          cfg.MonteCarloSeed,
		startingBalance: cfg.StartingBalance,
		idleTTL:         cfg.ContextIdleTTL,
		now:             now,
		logger:          log.With().Str("component", "engine").Logger(),
		meta:            cfg.Meta,
	}
}

// Bus exposes the event bus for streaming subscribers.
func (e *Impl) Bus() *events.Bus { return e.bus }

func (e *Impl) publish(ev events.Event, contextID string, data map[string]any) {
	e.bus.Publish(events.Envelope{Event: ev, Context: contextID, Time: e.now().UTC(), Data: data})
}

func (e *Impl) timeOr(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}

func outcome(ok bool) string {
	if ok {
		return "allowed"
	}
	return "rejected"
}

// --- Entry & sizing hooks ---

func (e *Impl) RecordExpectedPrice(ctx context.Context, pair string, price float64) error {
	if pair == "" {
		return ErrContextRequired
	}
	if price <= 0 {
		return fmt.Errorf("expected price must be positive, got %v", price)
	}
	e.prices.Record(pair, price)
	return nil
}

func (e *Impl) ConfirmEntry(ctx context.Context, contextID string, req EntryRequest) (*EntryDecision, error) {
	if contextID == "" {
		return nil, ErrContextRequired
	}
	defer e.metrics.NewTimer("confirm_entry").Stop()

	pair := req.Pair
	if pair == "" {
		pair = contextID
	}

	var (
		allowed   bool
		streakHit bool
	)
	e.registry.Do(contextID, func(m *risk.Manager) {
		streakHit = !m.CheckConsecutiveLosses()
		allowed = e.policy.ConfirmEntry(m, pair, req.Rate)
	})

	dec := &EntryDecision{Allowed: allowed}
	if expected, ok := e.prices.Expected(pair); ok {
		dev := slippage.Percent(expected, req.Rate)
		dec.Expected = &expected
		dec.Slippage = &dev
	}
	switch {
	case streakHit:
		dec.Reason = "consecutive loss limit reached"
		e.metrics.Rejection("consecutive_losses")
		e.publish(events.EventLossStreakReached, contextID, map[string]any{"pair": pair})
	case !allowed:
		dec.Reason = "slippage exceeds tolerance"
		e.metrics.Rejection("slippage")
	}
	if !allowed {
		e.publish(events.EventEntryRejected, contextID, map[string]any{"pair": pair, "rate": req.Rate, "reason": dec.Reason})
	}
	e.metrics.Decision("confirm_entry", outcome(allowed))
	e.metrics.SetContexts(e.registry.Count())
	return dec, nil
}

func (e *Impl) StakeAmount(ctx context.Context, contextID string, in dca.StakeInput) (*StakeDecision, error) {
	if contextID == "" {
		return nil, ErrContextRequired
	}
	defer e.metrics.NewTimer("stake_amount").Stop()

	var (
		stake float64
		ok    bool
	)
	e.registry.Do(contextID, func(m *risk.Manager) {
		stake, ok = e.policy.StakeAmount(m, in)
	})
	if !ok {
		e.metrics.Rejection("stake_limits")
		e.publish(events.EventStakeVetoed, contextID, map[string]any{
			"proposed":  in.ProposedStake,
			"entry_tag": in.EntryTag,
		})
	}
	e.metrics.Decision("stake_amount", outcome(ok))
	return &StakeDecision{Allowed: ok, Stake: stake}, nil
}

// --- Position hooks ---

func (e *Impl) AdjustPosition(ctx context.Context, contextID string, in dca.AdjustInput) (dca.Decision, error) {
	if contextID == "" {
		return dca.Decision{}, ErrContextRequired
	}
	defer e.metrics.NewTimer("adjust_position").Stop()

	in.Now = e.timeOr(in.Now)
	var dec dca.Decision
	e.registry.Do(contextID, func(m *risk.Manager) {
		dec = e.policy.AdjustPosition(m, in)
	})
	if dec.Action != dca.ActionNone {
		e.publish(events.EventPositionAdjusted, contextID, map[string]any{
			"action":      string(dec.Action),
			"stake_delta": dec.StakeDelta,
			"tier":        dec.Tier,
		})
	}
	e.metrics.Decision("adjust_position", string(dec.Action))
	return dec, nil
}

func (e *Impl) ConfirmExit(ctx context.Context, contextID string, in dca.ExitInput) (dca.ExitOutcome, error) {
	if contextID == "" {
		return dca.ExitOutcome{}, ErrContextRequired
	}
	defer e.metrics.NewTimer("confirm_exit").Stop()

	in.Now = e.timeOr(in.Now)
	var (
		out       dca.ExitOutcome
		state     risk.State
		dailyOK   = true
		streakHit bool
	)
	e.registry.Do(contextID, func(m *risk.Manager) {
		out = e.policy.ConfirmExit(m, in)
		if e.startingBalance > 0 {
			dailyOK = m.CheckDailyLossLimitTracked(in.Now, e.startingBalance)
		}
		streakHit = !m.CheckConsecutiveLosses()
		state = m.Snapshot()
	})

	e.publish(events.EventTradeClosed, contextID, map[string]any{
		"pair":    in.Pair,
		"reason":  in.Reason,
		"profit":  in.Profit,
		"is_loss": out.IsLoss,
	})
	if out.CooldownTriggered {
		e.metrics.Rejection("cooldown")
		e.publish(events.EventCooldownTriggered, contextID, map[string]any{
			"profit": in.Profit,
			"until":  state.CooldownUntil,
		})
	}
	if !dailyOK {
		e.publish(events.EventDailyLossExceeded, contextID, map[string]any{"daily_loss": state.DailyLoss})
	}
	if streakHit && out.IsLoss {
		e.publish(events.EventLossStreakReached, contextID, map[string]any{"streak": state.ConsecutiveLosses})
	}

	e.logger.Info().
		Str("context", contextID).
		Float64("profit", in.Profit).
		Bool("loss", out.IsLoss).
		Bool("cooldown", out.CooldownTriggered).
		Msg("trade closed")
	result := "win"
	if out.IsLoss {
		result = "loss"
	}
	e.metrics.Decision("confirm_exit", result)
	return out, nil
}

func (e *Impl) UpdateBalance(ctx context.Context, contextID string, balance float64) (*RiskStatus, error) {
	if contextID == "" {
		return nil, ErrContextRequired
	}
	var status *RiskStatus
	e.registry.Do(contextID, func(m *risk.Manager) {
		m.UpdateBalance(balance)
		status = e.status(contextID, m, balance, e.startingBalance)
	})
	if !status.Guards.CircuitBreakerOK {
		e.metrics.Rejection("circuit_breaker")
		e.publish(events.EventCircuitBreakerTripped, contextID, map[string]any{
			"balance": balance,
			"peak":    status.State.PeakBalance,
		})
	}
	e.metrics.SetContexts(e.registry.Count())
	return status, nil
}

// --- Queries ---

func (e *Impl) status(contextID string, m *risk.Manager, balance, startingBalance float64) *RiskStatus {
	if balance <= 0 {
		balance = m.PeakBalance()
	}
	if startingBalance <= 0 {
		startingBalance = e.startingBalance
	}
	if startingBalance <= 0 {
		startingBalance = m.PeakBalance()
	}
	report := m.Evaluate(e.now(), balance, startingBalance)
	if startingBalance <= 0 {
		// Nothing to measure the daily loss against yet.
		report.DailyLossOK = true
	}
	return &RiskStatus{
		Context: contextID,
		State:   m.Snapshot(),
		Guards:  report,
		Allowed: report.Allowed(),
	}
}

func (e *Impl) RiskStatus(ctx context.Context, contextID string, balance, startingBalance float64) (*RiskStatus, error) {
	if contextID == "" {
		return nil, ErrContextRequired
	}
	var status *RiskStatus
	e.registry.Do(contextID, func(m *risk.Manager) {
		status = e.status(contextID, m, balance, startingBalance)
	})
	return status, nil
}

func (e *Impl) ListContexts(ctx context.Context) []string {
	return e.registry.IDs()
}

func (e *Impl) Regime(ctx context.Context, snap regime.Snapshot) RegimeReport {
	return RegimeReport{
		Regime:        e.classifier.DetectRegime(snap),
		SuppressEntry: e.classifier.ShouldSuppressEntry(snap),
	}
}

// IngestBar updates the indicator window for symbol, records the bar close
// as the expected entry price, and evaluates the signals.
func (e *Impl) IngestBar(ctx context.Context, symbol string, bar indicators.Bar) (*SignalReport, error) {
	if symbol == "" {
		return nil, ErrContextRequired
	}
	if bar.Close <= 0 {
		return nil, fmt.Errorf("bar close must be positive, got %v", bar.Close)
	}
	snap := e.indicators.Update(symbol, bar)
	e.prices.Record(symbol, bar.Close)

	report := &SignalReport{
		Symbol:        symbol,
		Snapshot:      snap,
		Regime:        e.classifier.DetectRegime(snap),
		SuppressEntry: e.classifier.ShouldSuppressEntry(snap),
		EntrySignal:   e.policy.EntrySignal(snap),
		ExitSignal:    e.policy.ExitSignal(snap),
	}
	return report, nil
}

func (e *Impl) CheckSlippage(ctx context.Context, expected, actual float64) SlippageReport {
	return SlippageReport{
		Accepted:     e.gate.Check(expected, actual),
		DeviationPct: slippage.Percent(expected, actual),
		MaxPct:       e.gate.Config().MaxSlippagePercent,
	}
}

// --- Validation ---

func (e *Impl) SimulateMonteCarlo(ctx context.Context, req MonteCarloRequest) (*MonteCarloReport, error) {
	runs := e.mcRuns
	if req.Runs != nil {
		runs = *req.Runs
	}
	seed := e.mcSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	trades := req.Trades
	if len(trades) == 0 && req.Pair != "" {
		loaded, err := e.loadTrades(ctx, req.Pair)
		if err != nil {
			return nil, err
		}
		trades = loaded
	}

	start := time.Now()
	out, err := e.simulator.Run(ctx, trades, runs, seed)
	if err != nil {
		return nil, err
	}
	e.metrics.MonteCarloRuns(runs)

	report := &MonteCarloReport{
		RunID:    uuid.NewString(),
		Pair:     req.Pair,
		Seed:     seed,
		Outcome:  out,
		Duration: time.Since(start),
	}
	e.logger.Info().
		Str("run_id", report.RunID).
		Int("runs", runs).
		Int("trades", len(trades)).
		Float64("worst_drawdown", out.WorstDrawdown).
		Msg("monte carlo finished")
	return report, nil
}

func (e *Impl) loadTrades(ctx context.Context, pair string) ([]float64, error) {
	if e.trades == nil {
		return nil, ErrNoTradeLog
	}
	trades, err := e.trades.ClosedTradeProfits(ctx, pair)
	if errors.Is(err, db.ErrNoTrades) {
		return nil, fmt.Errorf("%w: no closed trades for %s", montecarlo.ErrInvalidInput, pair)
	}
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", pair, err)
	}
	return trades, nil
}

// --- System ---

func (e *Impl) GetSystemStatus(ctx context.Context) *SystemStatus {
	status := e.meta
	status.Contexts = e.registry.Count()
	status.ExpectedPrices = e.prices.Len()
	status.ServerTime = e.now().UTC()
	return &status
}

// Run drops idle contexts and stale expected prices until ctx is done. It
// returns immediately when no idle TTL is configured.
func (e *Impl) Run(ctx context.Context) {
	if e.idleTTL <= 0 {
		return
	}
	interval := e.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep()
		}
	}
}

func (e *Impl) sweep() {
	contexts := e.registry.CleanupIdle(e.idleTTL)
	prices := e.prices.Cleanup(e.idleTTL)
	if contexts > 0 || prices > 0 {
		e.logger.Info().Int("contexts", contexts).Int("prices", prices).Msg("dropped idle state")
	}
	e.metrics.SetContexts(e.registry.Count())
}

var _ Service = (*Impl)(nil)
