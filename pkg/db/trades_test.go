package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestClosedTradeProfitsOrderAndFilter(t *testing.T) {
	database := newTestDB(t)
	q := database.Trades()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closed := func(h int) *time.Time {
		c := base.Add(time.Duration(h) * time.Hour)
		return &c
	}
	trades := []Trade{
		{Pair: "BTC/USDT", CloseDate: closed(3), CloseProfitAbs: -20},
		{Pair: "ETH/USDT", CloseDate: closed(1), CloseProfitAbs: 5},
		{Pair: "BTC/USDT", CloseDate: closed(2), CloseProfitAbs: 40},
		{Pair: "BTC/USDT", IsOpen: true, CloseProfitAbs: 999},
	}
	for _, tr := range trades {
		if _, err := q.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	all, err := q.ClosedTradeProfits(ctx, "")
	if err != nil {
		t.Fatalf("ClosedTradeProfits: %v", err)
	}
	want := []float64{5, 40, -20}
	if len(all) != len(want) {
		t.Fatalf("got %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("got %v, want %v", all, want)
		}
	}

	btc, err := q.ClosedTradeProfits(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("ClosedTradeProfits BTC: %v", err)
	}
	if len(btc) != 2 || btc[0] != 40 || btc[1] != -20 {
		t.Fatalf("BTC profits=%v, want [40 -20]", btc)
	}

	pairs, err := q.Pairs(ctx)
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != "BTC/USDT" || pairs[1] != "ETH/USDT" {
		t.Fatalf("Pairs=%v", pairs)
	}
}

func TestClosedTradeProfitsEmpty(t *testing.T) {
	database := newTestDB(t)
	_, err := database.Trades().ClosedTradeProfits(context.Background(), "XRP/USDT")
	if !errors.Is(err, ErrNoTrades) {
		t.Fatalf("expected ErrNoTrades, got %v", err)
	}
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	database := newTestDB(t)
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("second ApplyMigrations: %v", err)
	}
	var n int
	err := database.DB.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('trades') WHERE name = 'exit_reason'`).Scan(&n)
	if err != nil || n != 1 {
		t.Fatalf("expected one exit_reason column, n=%d err=%v", n, err)
	}
}

func TestInsertRequiresPair(t *testing.T) {
	database := newTestDB(t)
	if _, err := database.Trades().Insert(context.Background(), Trade{}); err == nil {
		t.Fatalf("expected error for missing pair")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(t.TempDir() + "/missing.sqlite"); err == nil {
		t.Fatalf("expected error for missing trade log")
	}
}

func TestOpenReadsExistingLogReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradesv3.sqlite")
	writer, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ApplyMigrations(writer); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	closed := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if _, err := writer.Trades().Insert(context.Background(), Trade{Pair: "BTC/USDT", CloseDate: &closed, CloseProfitAbs: 12.5}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	writer.Close()

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	profits, err := reader.Trades().ClosedTradeProfits(context.Background(), "BTC/USDT")
	if err != nil || len(profits) != 1 || profits[0] != 12.5 {
		t.Fatalf("profits=%v err=%v", profits, err)
	}
	if _, err := reader.Trades().Insert(context.Background(), Trade{Pair: "ETH/USDT"}); err == nil {
		t.Fatalf("expected write to a read-only log to fail")
	}
}
