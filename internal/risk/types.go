package risk

import (
	"time"
)

// Config defines the guard thresholds for one trading context.
type Config struct {
	// MaxPositionSize is the absolute stake ceiling per position.
	MaxPositionSize float64 `json:"max_position_size" yaml:"max_position_size"`
	// MaxPortfolioAllocation is the largest share of the portfolio one position may take (0-1).
	MaxPortfolioAllocation float64 `json:"max_portfolio_allocation" yaml:"max_portfolio_allocation"`
	// DailyLossLimit is the fraction of the starting balance that may be lost per day (0-1).
	DailyLossLimit float64 `json:"daily_loss_limit" yaml:"daily_loss_limit"`
	// CircuitBreakerDrawdown is the drawdown from peak that halts trading (0-1).
	CircuitBreakerDrawdown float64 `json:"circuit_breaker_drawdown" yaml:"circuit_breaker_drawdown"`
	MaxConsecutiveLosses   int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	CooldownHours          float64 `json:"cooldown_hours" yaml:"cooldown_hours"`
}

// DefaultConfig returns the production guard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxPositionSize:        100000,
		MaxPortfolioAllocation: 0.2,
		DailyLossLimit:         0.05,
		CircuitBreakerDrawdown: 0.15,
		MaxConsecutiveLosses:   3,
		CooldownHours:          24,
	}
}

// CooldownDuration converts CooldownHours to a duration.
func (c Config) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownHours * float64(time.Hour))
}

// State is a read-only copy of a manager's mutable state.
type State struct {
	ConsecutiveLosses int        `json:"consecutive_losses"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	DailyLossDate     string     `json:"daily_loss_date,omitempty"`
	DailyLoss         float64    `json:"daily_loss"`
	PeakBalance       float64    `json:"peak_balance"`
}

// GuardReport is the outcome of evaluating every stateful guard at once.
type GuardReport struct {
	CircuitBreakerOK    bool `json:"circuit_breaker_ok"`
	DailyLossOK         bool `json:"daily_loss_ok"`
	ConsecutiveLossesOK bool `json:"consecutive_losses_ok"`
	CooldownOK          bool `json:"cooldown_ok"`
}

// Allowed reports whether every guard passed.
func (r GuardReport) Allowed() bool {
	return r.CircuitBreakerOK && r.DailyLossOK && r.ConsecutiveLossesOK && r.CooldownOK
}
