package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// schema mirrors the columns of a freqtrade trades table that the trade log reads.
const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pair TEXT NOT NULL,
    is_open INTEGER NOT NULL DEFAULT 1,
    open_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    close_date DATETIME,
    stake_amount REAL NOT NULL DEFAULT 0,
    close_profit REAL,
    close_profit_abs REAL
);

CREATE INDEX IF NOT EXISTS idx_trades_pair_open ON trades(pair, is_open);
`

// addedColumns were introduced by later freqtrade releases. Older trade
// logs are upgraded in place.
var addedColumns = []struct {
	name, definition string
}{
	{"exit_reason", "TEXT"},
	{"nr_of_successful_entries", "INTEGER DEFAULT 1"},
}

// ApplyMigrations creates the trades table and upgrades older files.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return errors.New("database is not initialized")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	for _, col := range addedColumns {
		if err := addColumnIfMissing(d.DB, "trades", col.name, col.definition); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(db *sql.DB, table, column, definition string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}
