package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"dca-core/internal/backtest"
	"dca-core/pkg/logger"
)

// analyze_backtest grades a backtest result against the go-live criteria.
// It exits 1 when the minimum criteria are not met.
//
// Usage (from the module root):
//   go run ./scripts/analyze_backtest -file user_data/backtest_results/result.json

func main() {
	file := flag.String("file", "", "backtest result JSON")
	flag.Parse()

	logger.Setup(os.Getenv("LOG_LEVEL"), "console")

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}
	m, err := backtest.LoadMetrics(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("load metrics")
	}
	res := backtest.DefaultCriteria().Evaluate(m)

	fmt.Println("=== Backtest metrics ===")
	fmt.Printf("Win rate:      %.2f%%\n", m.WinRate*100)
	fmt.Printf("Profit factor: %.2f\n", m.ProfitFactor)
	fmt.Printf("Sharpe:        %.2f\n", m.SharpeRatio)
	fmt.Printf("Max drawdown:  %.2f%%\n", m.MaxDrawdown)
	fmt.Printf("Trades:        %d\n", m.TotalTrades)
	fmt.Printf("Total profit:  %.2f%%\n", m.TotalProfitPct)

	fmt.Println("\n=== Evaluation ===")
	fmt.Printf("Minimum criteria: %s\n", verdict(res.PassedMinimum))
	fmt.Printf("Target criteria:  %s\n", verdict(res.PassedTarget))
	for _, d := range res.Details {
		fmt.Printf("  - %s\n", d)
	}

	if !res.PassedMinimum {
		os.Exit(1)
	}
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
