// Package dca decides stake sizes, position adds and partial exits for a
// dollar-cost-averaging strategy.
package dca

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dca-core/internal/regime"
)

// Guards is the subset of the risk manager the policy reads.
type Guards interface {
	CheckCooldown(now time.Time) bool
	CheckConsecutiveLosses() bool
	CheckPositionSize(size float64) bool
	CheckPortfolioLimit(size, total float64) bool
}

// Recorder is the subset of the risk manager an exit mutates.
type Recorder interface {
	RecordTradeResult(isLoss bool)
	TriggerCooldown(now time.Time)
	RecordDailyLoss(amount float64, now time.Time)
}

// SlippageChecker validates a fill against the expected price.
type SlippageChecker interface {
	Check(expected, actual float64) bool
}

// ExpectedPrices looks up the last recorded expected entry price for a pair.
type ExpectedPrices interface {
	Expected(pair string) (float64, bool)
}

// Policy holds no state of its own beyond its collaborators.
type Policy struct {
	cfg        Config
	slippage   SlippageChecker
	prices     ExpectedPrices
	classifier *regime.Classifier
	logger     zerolog.Logger
}

// NewPolicy wires a policy. prices and classifier may be nil.
func NewPolicy(cfg Config, slippage SlippageChecker, prices ExpectedPrices, classifier *regime.Classifier) *Policy {
	return &Policy{
		cfg:        cfg,
		slippage:   slippage,
		prices:     prices,
		classifier: classifier,
		logger:     log.With().Str("component", "dca").Logger(),
	}
}

// Config returns the policy knobs.
func (p *Policy) Config() Config { return p.cfg }

// AdjustPosition decides whether to add to, partially exit, or leave a position.
func (p *Policy) AdjustPosition(g Guards, in AdjustInput) Decision {
	pos := in.Position
	if pos == nil || !pos.Open {
		return Decision{Action: ActionNone, Reason: "no open position"}
	}
	// Cooldown blocks everything, including profit taking.
	if !g.CheckCooldown(in.Now) {
		return Decision{Action: ActionNone, Reason: "cooldown active"}
	}
	if pos.Profit >= p.cfg.TakeProfit {
		sell := pos.StakeAmount * p.cfg.TakeProfitSellRatio
		p.logger.Info().
			Str("pair", pos.Pair).
			Float64("profit", pos.Profit).
			Float64("sell", sell).
			Msg("partial take profit")
		return Decision{Action: ActionPartialExit, StakeDelta: -sell, Reason: "take profit"}
	}
	if pos.Profit > 0 {
		return Decision{Action: ActionNone, Reason: "in profit"}
	}

	tier := pos.Entries
	if tier < 1 || tier > len(p.cfg.TierThresholds) {
		return Decision{Action: ActionNone, Reason: "no tier available"}
	}
	if pos.Profit <= p.cfg.TierThresholds[tier-1] {
		add := in.MaxStake * p.cfg.AddStakeRatio
		if add <= 0 {
			return Decision{Action: ActionNone, Tier: tier, Reason: "no stake available"}
		}
		p.logger.Info().
			Str("pair", pos.Pair).
			Int("tier", tier).
			Float64("profit", pos.Profit).
			Float64("add", add).
			Msg("dca add")
		return Decision{Action: ActionAdd, StakeDelta: add, Tier: tier, Reason: "tier threshold reached"}
	}
	return Decision{Action: ActionNone, Reason: "above tier threshold"}
}

// StakeAmount scales the proposed stake for tagged DCA entries and vetoes it
// when it breaks a size or allocation limit. It never clamps.
func (p *Policy) StakeAmount(g Guards, in StakeInput) (float64, bool) {
	stake := in.ProposedStake
	if p.cfg.DCATagPrefix != "" && strings.HasPrefix(in.EntryTag, p.cfg.DCATagPrefix) {
		stake *= p.cfg.DCAStakeMultiplier
	}
	if !g.CheckPositionSize(stake) {
		return 0, false
	}
	if in.WalletBalance > 0 && !g.CheckPortfolioLimit(stake, in.WalletBalance) {
		return 0, false
	}
	return stake, true
}

// ConfirmEntry allows an entry unless the loss streak is exhausted or the
// fill rate slipped too far from a recorded expected price.
func (p *Policy) ConfirmEntry(g Guards, pair string, rate float64) bool {
	if !g.CheckConsecutiveLosses() {
		return false
	}
	if p.prices == nil || p.slippage == nil {
		return true
	}
	expected, ok := p.prices.Expected(pair)
	if !ok {
		return true
	}
	if !p.slippage.Check(expected, rate) {
		p.logger.Info().Str("pair", pair).Float64("expected", expected).Float64("rate", rate).Msg("entry rejected on slippage")
		return false
	}
	return true
}

// ConfirmExit records the trade result. A cooldown starts whenever the exit
// profit reached the stop-loss level, whatever reason the host reported.
func (p *Policy) ConfirmExit(r Recorder, in ExitInput) ExitOutcome {
	out := ExitOutcome{IsLoss: in.Profit < 0}
	r.RecordTradeResult(out.IsLoss)
	if in.LossAmount > 0 {
		r.RecordDailyLoss(in.LossAmount, in.Now)
	}
	if out.IsLoss && in.Profit <= p.cfg.StopLoss {
		r.TriggerCooldown(in.Now)
		out.CooldownTriggered = true
	}
	return out
}
