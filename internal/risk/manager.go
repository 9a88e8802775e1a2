package risk

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// Manager holds the risk state of a single trading context. It is not safe
// for concurrent use; the Registry serializes access per context.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	consecutiveLosses int
	cooldownUntil     *time.Time
	dailyLossDate     string
	dailyLoss         float64
	peakBalance       float64
}

// NewInMemory creates a manager with fresh state.
func NewInMemory(cfg Config) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: log.With().Str("component", "risk").Logger(),
	}
}

// withContext tags log lines with the owning trading context.
func (m *Manager) withContext(id string) *Manager {
	m.logger = m.logger.With().Str("context", id).Logger()
	return m
}

// GetConfig returns the guard thresholds.
func (m *Manager) GetConfig() Config { return m.cfg }

// CheckPositionSize passes when size does not exceed the absolute ceiling.
func (m *Manager) CheckPositionSize(size float64) bool {
	if size <= m.cfg.MaxPositionSize {
		return true
	}
	m.logger.Info().Float64("size", size).Float64("max", m.cfg.MaxPositionSize).Msg("position size limit exceeded")
	return false
}

// CheckPortfolioLimit passes when size is within the allowed share of total.
func (m *Manager) CheckPortfolioLimit(size, total float64) bool {
	maxAllowed := total * m.cfg.MaxPortfolioAllocation
	if size <= maxAllowed {
		return true
	}
	m.logger.Info().Float64("size", size).Float64("max_allowed", maxAllowed).Msg("portfolio allocation limit exceeded")
	return false
}

// CheckDailyLossLimit passes when |loss| is within the daily budget of the
// starting balance.
func (m *Manager) CheckDailyLossLimit(loss, startingBalance float64) bool {
	maxLoss := startingBalance * m.cfg.DailyLossLimit
	if math.Abs(loss) <= maxLoss {
		return true
	}
	m.logger.Warn().Float64("loss", loss).Float64("max_loss", maxLoss).Msg("daily loss limit exceeded")
	return false
}

// CheckDailyLossLimitTracked applies the daily budget to the loss recorded
// for now's calendar date.
func (m *Manager) CheckDailyLossLimitTracked(now time.Time, startingBalance float64) bool {
	return m.CheckDailyLossLimit(m.DailyLoss(now), startingBalance)
}

// CheckCircuitBreaker passes while drawdown from peak stays strictly below
// the threshold. A non-positive peak carries no history and passes.
func (m *Manager) CheckCircuitBreaker(balance, peak float64) bool {
	if peak <= 0 {
		return true
	}
	drawdown := (peak - balance) / peak
	if drawdown < m.cfg.CircuitBreakerDrawdown {
		return true
	}
	m.logger.Warn().
		Float64("balance", balance).
		Float64("peak", peak).
		Float64("drawdown", drawdown).
		Msg("circuit breaker tripped")
	return false
}

// CheckCircuitBreakerTracked uses the recorded peak. It permits when no peak
// has been recorded yet.
func (m *Manager) CheckCircuitBreakerTracked(balance float64) bool {
	return m.CheckCircuitBreaker(balance, m.peakBalance)
}

// CheckConsecutiveLosses passes while the loss streak is below the maximum.
func (m *Manager) CheckConsecutiveLosses() bool {
	if m.consecutiveLosses < m.cfg.MaxConsecutiveLosses {
		return true
	}
	m.logger.Info().Int("streak", m.consecutiveLosses).Msg("consecutive loss limit reached")
	return false
}

// CheckCooldown passes when no cooldown is set or now has reached the deadline.
func (m *Manager) CheckCooldown(now time.Time) bool {
	if m.cooldownUntil == nil {
		return true
	}
	return !now.Before(*m.cooldownUntil)
}

// Evaluate runs every stateful guard against the recorded state.
func (m *Manager) Evaluate(now time.Time, balance, startingBalance float64) GuardReport {
	return GuardReport{
		CircuitBreakerOK:    m.CheckCircuitBreakerTracked(balance),
		DailyLossOK:         m.CheckDailyLossLimitTracked(now, startingBalance),
		ConsecutiveLossesOK: m.CheckConsecutiveLosses(),
		CooldownOK:          m.CheckCooldown(now),
	}
}

// RecordTradeResult extends the loss streak on a loss and resets it otherwise.
func (m *Manager) RecordTradeResult(isLoss bool) {
	if isLoss {
		m.consecutiveLosses++
		return
	}
	m.consecutiveLosses = 0
}

// TriggerCooldown sets the deadline to now plus the cooldown duration.
func (m *Manager) TriggerCooldown(now time.Time) {
	until := now.Add(m.cfg.CooldownDuration())
	m.cooldownUntil = &until
	m.logger.Warn().Time("until", until).Msg("cooldown triggered")
}

// RecordDailyLoss adds a positive loss amount to the bucket of now's date,
// starting a fresh bucket when the date has changed.
func (m *Manager) RecordDailyLoss(amount float64, now time.Time) {
	day := now.Format(dateLayout)
	if m.dailyLossDate != day {
		m.dailyLossDate = day
		m.dailyLoss = 0
	}
	m.dailyLoss += amount
}

// DailyLoss returns the loss accumulated on now's date.
func (m *Manager) DailyLoss(now time.Time) float64 {
	if m.dailyLossDate != now.Format(dateLayout) {
		return 0
	}
	return m.dailyLoss
}

// UpdateBalance raises the recorded peak; it never lowers it.
func (m *Manager) UpdateBalance(balance float64) {
	if balance > m.peakBalance {
		m.peakBalance = balance
	}
}

// inert reports whether dropping the manager would lose nothing a guard
// reads, apart from the peak balance.
func (m *Manager) inert(now time.Time) bool {
	if m.cooldownUntil != nil && now.Before(*m.cooldownUntil) {
		return false
	}
	return m.consecutiveLosses == 0 && m.DailyLoss(now) == 0
}

// PeakBalance returns the highest balance seen.
func (m *Manager) PeakBalance() float64 { return m.peakBalance }

// Snapshot copies the current state.
func (m *Manager) Snapshot() State {
	s := State{
		ConsecutiveLosses: m.consecutiveLosses,
		DailyLossDate:     m.dailyLossDate,
		DailyLoss:         m.dailyLoss,
		PeakBalance:       m.peakBalance,
	}
	if m.cooldownUntil != nil {
		until := *m.cooldownUntil
		s.CooldownUntil = &until
	}
	return s
}
