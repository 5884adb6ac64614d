package prefs

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const schema = `CREATE TABLE IF NOT EXISTS target_prices (
	symbol TEXT PRIMARY KEY,
	price  REAL NOT NULL
)`

// SQLite stores preferences in a target_prices table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at dsn and ensures the schema.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, price FROM target_prices`)
	if err != nil {
		return nil, fmt.Errorf("querying target prices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("scanning target price: %w", err)
		}
		out[symbol] = price
	}
	return out, rows.Err()
}

// Save replaces the table content in a single transaction.
func (s *SQLite) Save(ctx context.Context, targets map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM target_prices`); err != nil {
		return fmt.Errorf("clearing target prices: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO target_prices (symbol, price) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for symbol, price := range targets {
		if _, err := stmt.ExecContext(ctx, symbol, price); err != nil {
			return fmt.Errorf("inserting %s: %w", symbol, err)
		}
	}
	return tx.Commit()
}
