package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNoTrades = errors.New("no closed trades found")

// Trade is one row of the trade log.
type Trade struct {
	ID             int64
	Pair           string
	IsOpen         bool
	OpenDate       time.Time
	CloseDate      *time.Time
	StakeAmount    float64
	CloseProfit    float64
	CloseProfitAbs float64
	ExitReason     string
	Entries        int
}

// TradeLog queries the trades table.
type TradeLog struct {
	db *sql.DB
}

// NewTradeLog creates a TradeLog over db.
func NewTradeLog(db *sql.DB) *TradeLog {
	return &TradeLog{db: db}
}

// ClosedTradeProfits returns the absolute profit of every closed trade in
// close order. An empty pair selects all pairs.
func (q *TradeLog) ClosedTradeProfits(ctx context.Context, pair string) ([]float64, error) {
	query := `
		SELECT close_profit_abs
		FROM trades
		WHERE is_open = 0 AND close_profit_abs IS NOT NULL`
	args := []any{}
	if pair != "" {
		query += ` AND pair = ?`
		args = append(args, pair)
	}
	query += ` ORDER BY close_date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query closed trades: %w", err)
	}
	defer rows.Close()

	var profits []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		profits = append(profits, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(profits) == 0 {
		return nil, ErrNoTrades
	}
	return profits, nil
}

// Pairs lists the pairs that have at least one closed trade.
func (q *TradeLog) Pairs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT pair FROM trades WHERE is_open = 0 ORDER BY pair
	`)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Insert writes a trade and returns its id.
func (q *TradeLog) Insert(ctx context.Context, t Trade) (int64, error) {
	if t.Pair == "" {
		return 0, errors.New("trade pair is required")
	}
	entries := t.Entries
	if entries <= 0 {
		entries = 1
	}
	var closeProfit, closeProfitAbs any
	if !t.IsOpen {
		closeProfit, closeProfitAbs = t.CloseProfit, t.CloseProfitAbs
	}
	openDate := t.OpenDate
	if openDate.IsZero() {
		openDate = time.Now().UTC()
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO trades (pair, is_open, open_date, close_date, stake_amount,
			close_profit, close_profit_abs, exit_reason, nr_of_successful_entries)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Pair, t.IsOpen, openDate, t.CloseDate, t.StakeAmount,
		closeProfit, closeProfitAbs, t.ExitReason, entries)
	if err != nil {
		return 0, fmt.Errorf("insert trade: %w", err)
	}
	return res.LastInsertId()
}
