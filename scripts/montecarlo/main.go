package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"dca-core/internal/backtest"
	"dca-core/internal/montecarlo"
	"dca-core/pkg/db"
	"dca-core/pkg/logger"
)

// montecarlo replays the closed trades of a backtest in shuffled order and
// prints the drawdown distribution.
//
// Usage (from the module root):
//   go run ./scripts/montecarlo -file user_data/backtest_results/result.json
//   go run ./scripts/montecarlo -db ./data/tradesv3.sqlite -pair BTC/USDT

func main() {
	file := flag.String("file", "", "backtest result JSON")
	dbPath := flag.String("db", "", "SQLite trade log (used when -file is empty)")
	pair := flag.String("pair", "", "restrict the trade log to one pair")
	simulations := flag.Int("simulations", 100, "number of shuffled runs")
	seed := flag.Int64("seed", 42, "random seed")
	workers := flag.Int("workers", 0, "parallel workers (0 = GOMAXPROCS)")
	flag.Parse()

	logger.Setup(os.Getenv("LOG_LEVEL"), "console")

	trades, source, err := loadTrades(*file, *dbPath, *pair)
	if err != nil {
		log.Fatal().Err(err).Msg("load trades")
	}
	log.Info().Str("source", source).Int("trades", len(trades)).Msg("trades loaded")

	start := time.Now()
	out, err := montecarlo.NewSimulator(*workers).Run(context.Background(), trades, *simulations, *seed)
	if err != nil {
		log.Fatal().Err(err).Msg("simulate")
	}

	fmt.Println("=== Monte Carlo simulation ===")
	fmt.Printf("Source:          %s\n", source)
	fmt.Printf("Trades:          %d\n", out.TradeCount)
	fmt.Printf("Runs:            %d (seed %d, %s)\n", out.RunCount, *seed, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Median profit:   %.4f\n", out.MedianProfit)
	fmt.Printf("95%% CI profit:   [%.4f, %.4f]\n", out.CI95Lower, out.CI95Upper)
	fmt.Printf("Worst drawdown:  %.4f\n", out.WorstDrawdown)
	fmt.Printf("Median drawdown: %.4f\n", out.MedianDrawdown)
	fmt.Printf("Best drawdown:   %.4f\n", out.BestDrawdown)
	if out.ProfitDegenerate {
		fmt.Println("Note: shuffling keeps every trade, so final profit is identical across runs; read the drawdown range instead.")
	}
}

func loadTrades(file, dbPath, pair string) ([]float64, string, error) {
	if file != "" {
		trades, err := backtest.LoadProfits(file)
		return trades, file, err
	}
	if dbPath == "" {
		return nil, "", fmt.Errorf("one of -file or -db is required")
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, "", err
	}
	defer database.Close()

	trades, err := database.Trades().ClosedTradeProfits(context.Background(), pair)
	source := dbPath
	if pair != "" {
		source += " (" + pair + ")"
	}
	return trades, source, err
}
