package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dca-core/internal/dca"
	"dca-core/internal/indicators"
	"dca-core/internal/regime"
	"dca-core/internal/risk"
	"dca-core/internal/slippage"
)

// DefaultJWTSecret is only meant for local development.
const DefaultJWTSecret = "dev-secret"

// Strategy holds every decision knob. It can be overlaid from a YAML file.
type Strategy struct {
	Risk       risk.Config       `yaml:"risk"`
	DCA        dca.Config        `yaml:"dca"`
	Regime     regime.Config     `yaml:"regime"`
	Slippage   slippage.Config   `yaml:"slippage"`
	Indicators indicators.Config `yaml:"indicators"`
	MonteCarlo MonteCarlo        `yaml:"monte_carlo"`
}

// MonteCarlo holds the validator defaults.
type MonteCarlo struct {
	Simulations int   `yaml:"simulations"`
	Seed        int64 `yaml:"seed"`
	Workers     int   `yaml:"workers"`
}

// Config holds environment-driven settings for the decision service.
// It is built once at startup and not modified afterwards.
type Config struct {
	Port string

	// Logging
	LogLevel  string
	LogFormat string // "console" or "json"

	// Auth
	JWTSecret string

	// Trade log used by the Monte Carlo tooling.
	DBPath string

	// Optional YAML file overlaying Strategy.
	StrategyConfigPath string

	// Contexts idle longer than this are dropped; zero disables cleanup.
	ContextIdleTTL time.Duration

	// Starting balance used by the tracked daily loss guard when the host
	// does not send one.
	StartingBalance float64

	Strategy Strategy
}

// DefaultStrategy returns the production decision knobs.
func DefaultStrategy() Strategy {
	return Strategy{
		Risk:       risk.DefaultConfig(),
		DCA:        dca.DefaultConfig(),
		Regime:     regime.DefaultConfig(),
		Slippage:   slippage.DefaultConfig(),
		Indicators: indicators.DefaultConfig(),
		MonteCarlo: MonteCarlo{Simulations: 100, Seed: 42},
	}
}

// Load reads environment variables (optionally via .env) into Config, then
// applies the strategy file if one is configured.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	s := DefaultStrategy()
	s.Risk.MaxPositionSize = getEnvFloat("RISK_MAX_POSITION_SIZE", s.Risk.MaxPositionSize)
	s.Risk.MaxPortfolioAllocation = getEnvFloat("RISK_MAX_PORTFOLIO_ALLOCATION", s.Risk.MaxPortfolioAllocation)
	s.Risk.DailyLossLimit = getEnvFloat("RISK_DAILY_LOSS_LIMIT", s.Risk.DailyLossLimit)
	s.Risk.CircuitBreakerDrawdown = getEnvFloat("RISK_CIRCUIT_BREAKER_DRAWDOWN", s.Risk.CircuitBreakerDrawdown)
	s.Risk.MaxConsecutiveLosses = getEnvInt("RISK_MAX_CONSECUTIVE_LOSSES", s.Risk.MaxConsecutiveLosses)
	s.Risk.CooldownHours = getEnvFloat("RISK_COOLDOWN_HOURS", s.Risk.CooldownHours)
	s.Slippage.MaxSlippagePercent = getEnvFloat("MAX_SLIPPAGE_PERCENT", s.Slippage.MaxSlippagePercent)
	s.Regime.TrendThreshold = getEnvFloat("REGIME_ADX_THRESHOLD", s.Regime.TrendThreshold)
	s.DCA.StopLoss = getEnvFloat("DCA_STOP_LOSS", s.DCA.StopLoss)
	s.DCA.SuppressBearEntries = getEnvBool("DCA_SUPPRESS_BEAR_ENTRIES", s.DCA.SuppressBearEntries)
	if v := os.Getenv("DCA_TIER_THRESHOLDS"); v != "" {
		th, err := parseFloats(v)
		if err != nil {
			return nil, fmt.Errorf("DCA_TIER_THRESHOLDS: %w", err)
		}
		s.DCA.TierThresholds = th
	}
	s.MonteCarlo.Simulations = getEnvInt("MONTE_CARLO_SIMULATIONS", s.MonteCarlo.Simulations)
	s.MonteCarlo.Seed = int64(getEnvInt("MONTE_CARLO_SEED", int(s.MonteCarlo.Seed)))
	s.MonteCarlo.Workers = getEnvInt("MONTE_CARLO_WORKERS", s.MonteCarlo.Workers)

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "console")),
		JWTSecret:          getEnv("JWT_SECRET", DefaultJWTSecret),
		DBPath:             getEnv("DB_PATH", "./data/tradesv3.sqlite"),
		StrategyConfigPath: getEnv("STRATEGY_CONFIG_PATH", ""),
		ContextIdleTTL:     time.Duration(getEnvInt("CONTEXT_IDLE_TTL_MINUTES", 0)) * time.Minute,
		StartingBalance:    getEnvFloat("STARTING_BALANCE", 0),
		Strategy:           s,
	}

	if cfg.StrategyConfigPath != "" {
		if err := LoadStrategyFile(cfg.StrategyConfigPath, &cfg.Strategy); err != nil {
			return nil, err
		}
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStrategyFile overlays the YAML file at path onto s. Keys missing from
// the file keep their current values.
func LoadStrategyFile(path string, s *Strategy) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read strategy config: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse strategy config %s: %w", path, err)
	}
	return nil
}

// Validate reports every inconsistent knob at once.
func (s Strategy) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Risk.MaxPositionSize > 0, "risk.max_position_size must be positive")
	check(inUnit(s.Risk.MaxPortfolioAllocation), "risk.max_portfolio_allocation must be in (0, 1]")
	check(inUnit(s.Risk.DailyLossLimit), "risk.daily_loss_limit must be in (0, 1]")
	check(inUnit(s.Risk.CircuitBreakerDrawdown), "risk.circuit_breaker_drawdown must be in (0, 1]")
	check(s.Risk.MaxConsecutiveLosses > 0, "risk.max_consecutive_losses must be positive")
	check(s.Risk.CooldownHours >= 0, "risk.cooldown_hours must not be negative")

	check(len(s.DCA.TierThresholds) > 0, "dca.tier_thresholds must not be empty")
	for i, th := range s.DCA.TierThresholds {
		check(th < 0, "dca.tier_thresholds[%d] must be negative", i)
		if i > 0 {
			check(th < s.DCA.TierThresholds[i-1], "dca.tier_thresholds[%d] must be deeper than tier %d", i, i)
		}
	}
	check(s.DCA.TakeProfit > 0, "dca.take_profit must be positive")
	check(inUnit(s.DCA.TakeProfitSellRatio), "dca.take_profit_sell_ratio must be in (0, 1]")
	check(s.DCA.AddStakeRatio > 0, "dca.add_stake_ratio must be positive")
	check(s.DCA.DCAStakeMultiplier > 0, "dca.dca_stake_multiplier must be positive")
	check(s.DCA.StopLoss < 0, "dca.stop_loss must be negative")

	check(s.Slippage.MaxSlippagePercent >= 0, "slippage.max_slippage_percent must not be negative")
	check(s.Regime.StrongTrendThreshold >= s.Regime.TrendThreshold, "regime.strong_trend_threshold must not be below trend_threshold")
	check(s.MonteCarlo.Simulations > 0, "monte_carlo.simulations must be positive")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid strategy config: %w", errors.Join(errs...))
}

// Warnings lists settings that are valid but unsafe outside development.
func (c *Config) Warnings() []string {
	var out []string
	if c.JWTSecret == DefaultJWTSecret {
		out = append(out, "JWT_SECRET is the development default")
	}
	if c.StartingBalance <= 0 {
		out = append(out, "STARTING_BALANCE not set; daily loss guard relies on the balance sent by the host")
	}
	return out
}

func inUnit(v float64) bool { return v > 0 && v <= 1 }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}

func parseFloats(val string) ([]float64, error) {
	parts := strings.Split(val, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
