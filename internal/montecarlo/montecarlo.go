// Package montecarlo measures how sensitive a strategy's drawdown is to the
// order in which its trades happened.
//
// Each run shuffles the trade outcomes without replacement and replays them.
// Because every run sums the same values, the final profit is the same in
// every run. It is computed once with compensated summation so shuffling
// cannot leak rounding noise into it, and its confidence interval collapses
// to a point.
// Outcome.ProfitDegenerate reports this; drawdown is the informative statistic.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput is returned for an empty trade list or a non-positive run count.
var ErrInvalidInput = errors.New("invalid monte carlo input")

// Outcome aggregates one simulation call.
type Outcome struct {
	MedianProfit   float64 `json:"median_profit"`
	CI95Lower      float64 `json:"ci_95_lower"`
	CI95Upper      float64 `json:"ci_95_upper"`
	WorstDrawdown  float64 `json:"worst_drawdown"`
	BestDrawdown   float64 `json:"best_drawdown"`
	MedianDrawdown float64 `json:"median_drawdown"`
	RunCount       int     `json:"run_count"`
	TradeCount     int     `json:"trade_count"`
	// ProfitDegenerate is always true for order shuffling.
	ProfitDegenerate bool `json:"profit_degenerate"`
}

// Simulator runs simulations on a bounded worker pool.
type Simulator struct {
	workers int
}

// NewSimulator returns a simulator using workers goroutines; zero or less
// means GOMAXPROCS.
func NewSimulator(workers int) *Simulator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Simulator{workers: workers}
}

// Run simulates with default parallelism.
func Run(trades []float64, runs int, seed int64) (Outcome, error) {
	return NewSimulator(0).Run(context.Background(), trades, runs, seed)
}

// Run shuffles trades runs times. Each run draws from a generator seeded by
// (seed, run index), so the outcome depends only on the inputs and never on
// worker count or scheduling.
func (s *Simulator) Run(ctx context.Context, trades []float64, runs int, seed int64) (Outcome, error) {
	if len(trades) == 0 {
		return Outcome{}, fmt.Errorf("%w: trade list is empty", ErrInvalidInput)
	}
	if runs <= 0 {
		return Outcome{}, fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidInput, runs)
	}

	final := sum(trades)
	drawdowns := make([]float64, runs)

	workers := s.workers
	if workers > runs {
		workers = runs
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			buf := make([]float64, len(trades))
			for i := w; i < runs; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				copy(buf, trades)
				rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
				rng.Shuffle(len(buf), func(a, b int) { buf[a], buf[b] = buf[b], buf[a] })
				drawdowns[i] = replay(buf)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, fmt.Errorf("monte carlo: %w", err)
	}

	sort.Float64s(drawdowns)
	out := Outcome{
		MedianProfit:     final,
		CI95Lower:        final,
		CI95Upper:        final,
		WorstDrawdown:    drawdowns[len(drawdowns)-1],
		BestDrawdown:     drawdowns[0],
		MedianDrawdown:   percentile(drawdowns, 50),
		RunCount:         runs,
		TradeCount:       len(trades),
		ProfitDegenerate: true,
	}
	log.Debug().
		Str("component", "montecarlo").
		Int("runs", runs).
		Int("trades", len(trades)).
		Float64("worst_drawdown", out.WorstDrawdown).
		Msg("simulation finished")
	return out, nil
}

// replay returns the largest peak-to-trough decline of the cumulative series
// starting at zero.
func replay(trades []float64) (maxDrawdown float64) {
	var cum, peak float64
	for _, v := range trades {
		cum += v
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// sum adds values with Neumaier compensation, so the result does not depend
// on their order beyond the final rounding.
func sum(values []float64) float64 {
	var s, c float64
	for _, v := range values {
		t := s + v
		if math.Abs(s) >= math.Abs(v) {
			c += (s - t) + v
		} else {
			c += (v - t) + s
		}
		s = t
	}
	return s + c
}

// percentile interpolates linearly between the closest ranks of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := math.Floor(rank)
	hi := math.Ceil(rank)
	if lo == hi {
		return sorted[int(lo)]
	}
	frac := rank - lo
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*frac
}
