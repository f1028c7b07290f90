package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// BarStore is a SQLite-backed table of bars keyed by symbol and timestamp.
// It serves the same role as a CSV directory for historic replay, and the
// writer side lets recorders persist live bars for later backtests.
type BarStore struct {
	db *sql.DB
}

// OpenBarStore creates or opens the store at path, running migrations.
func OpenBarStore(path string) (*BarStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}

	store := &BarStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate bar store: %w", err)
	}
	return store, nil
}

func (s *BarStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			ts_unix INTEGER NOT NULL,
			open REAL NOT NULL,
			low REAL NOT NULL,
			high REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			open_interest REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, ts_unix)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_ts ON bars(symbol, ts_unix)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Insert upserts one bar.
func (s *BarStore) Insert(bar Bar) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO bars
			(symbol, ts_unix, open, low, high, close, volume, open_interest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bar.Symbol, bar.Timestamp.Unix(), bar.Open, bar.Low, bar.High,
		bar.Close, bar.Volume, bar.OpenInterest,
	)
	if err != nil {
		return fmt.Errorf("insert bar %s@%s: %w", bar.Symbol, bar.Timestamp, err)
	}
	return nil
}

// Load returns the full ordered series for symbol.
func (s *BarStore) Load(symbol string) ([]Bar, error) {
	rows, err := s.db.Query(
		`SELECT ts_unix, open, low, high, close, volume, open_interest
		 FROM bars WHERE symbol = ? ORDER BY ts_unix`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var (
			unix int64
			bar  Bar
		)
		if err := rows.Scan(&unix, &bar.Open, &bar.Low, &bar.High, &bar.Close, &bar.Volume, &bar.OpenInterest); err != nil {
			return nil, fmt.Errorf("scan bar for %s: %w", symbol, err)
		}
		bar.Symbol = symbol
		bar.Timestamp = time.Unix(unix, 0).UTC()
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// LoadAll fetches every requested symbol's series, failing if any symbol has
// no data. The result feeds straight into NewHistoric.
func (s *BarStore) LoadAll(symbols []string) (map[string][]Bar, error) {
	records := make(map[string][]Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := s.Load(sym)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("bar store has no rows for symbol %s", sym)
		}
		records[sym] = bars
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *BarStore) Close() error { return s.db.Close() }
