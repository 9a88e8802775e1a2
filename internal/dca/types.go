package dca

import "time"

// Config holds the tiering and sizing knobs.
type Config struct {
	// TierThresholds[i] is the profit fraction at or below which a position
	// holding i+1 entries receives another one. Each is deeper than the last.
	TierThresholds []float64 `json:"tier_thresholds" yaml:"tier_thresholds"`
	// AddStakeRatio is the share of max stake bought on each add.
	AddStakeRatio float64 `json:"add_stake_ratio" yaml:"add_stake_ratio"`
	// TakeProfit is the profit fraction that triggers a partial exit.
	TakeProfit float64 `json:"take_profit" yaml:"take_profit"`
	// TakeProfitSellRatio is the share of the current stake sold on a partial exit.
	TakeProfitSellRatio float64 `json:"take_profit_sell_ratio" yaml:"take_profit_sell_ratio"`
	DCATagPrefix        string  `json:"dca_tag_prefix" yaml:"dca_tag_prefix"`
	DCAStakeMultiplier  float64 `json:"dca_stake_multiplier" yaml:"dca_stake_multiplier"`
	// StopLoss is the profit fraction at which an exit starts a cooldown.
	StopLoss float64 `json:"stop_loss" yaml:"stop_loss"`

	EntryRSIMax       float64 `json:"entry_rsi_max" yaml:"entry_rsi_max"`
	EntryVolumeFactor float64 `json:"entry_volume_factor" yaml:"entry_volume_factor"`
	ExitRSIMin        float64 `json:"exit_rsi_min" yaml:"exit_rsi_min"`
	// SuppressBearEntries applies the regime entry filter to entry signals.
	SuppressBearEntries bool `json:"suppress_bear_entries" yaml:"suppress_bear_entries"`
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		TierThresholds:      []float64{-0.07, -0.12, -0.18},
		AddStakeRatio:       0.5,
		TakeProfit:          0.08,
		TakeProfitSellRatio: 0.33,
		DCATagPrefix:        "dca_",
		DCAStakeMultiplier:  1.5,
		StopLoss:            -0.20,
		EntryRSIMax:         45,
		EntryVolumeFactor:   0.9,
		ExitRSIMin:          70,
	}
}

// Position is the host's view of an open trade.
type Position struct {
	Pair string `json:"pair"`
	// Entries counts successful entries, starting at 1 for the opening order.
	Entries     int     `json:"entries"`
	StakeAmount float64 `json:"stake_amount"`
	EntryRate   float64 `json:"entry_rate"`
	// Profit is the current profit fraction (-0.07 = -7%).
	Profit float64 `json:"profit"`
	Open   bool    `json:"open"`
}

// Action is what the host should do with a position.
type Action string

const (
	ActionNone        Action = "none"
	ActionAdd         Action = "add"
	ActionPartialExit Action = "partial_exit"
)

// Decision is the result of a position adjustment. StakeDelta is positive
// for an add, negative for a partial exit and zero otherwise.
type Decision struct {
	Action     Action  `json:"action"`
	StakeDelta float64 `json:"stake_delta"`
	Tier       int     `json:"tier,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// AdjustInput carries one position-adjustment call.
type AdjustInput struct {
	Position *Position
	Now      time.Time
	MinStake float64
	MaxStake float64
}

// StakeInput carries one stake-sizing call.
type StakeInput struct {
	Pair          string
	ProposedStake float64
	EntryTag      string
	// WalletBalance of zero skips the portfolio allocation check.
	WalletBalance float64
}

// ExitInput describes a confirmed exit.
type ExitInput struct {
	Pair   string
	Reason string
	Profit float64
	// LossAmount is the absolute realized loss in stake currency, if known.
	LossAmount float64
	Now        time.Time
}

// ExitOutcome reports the state changes an exit caused.
type ExitOutcome struct {
	IsLoss            bool `json:"is_loss"`
	CooldownTriggered bool `json:"cooldown_triggered"`
}
