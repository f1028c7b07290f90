// Package data hosts bar sources for the simulator: the replay interface,
// the historic feed with union-index forward-fill, and loaders for CSV
// directories, SQLite stores, and live websocket streams.
package data

import "time"

// Bar is one OHLCV(+open interest) observation for a symbol at a timestamp.
// Bars are immutable once produced by a feed.
type Bar struct {
	Symbol       string    `json:"symbol"`
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"open"`
	Low          float64   `json:"low"`
	High         float64   `json:"high"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	OpenInterest float64   `json:"open_interest"`
}

// Feed replays per-symbol time-indexed bars on demand. Historic and live
// implementations satisfy the same contract so the rest of the simulator
// treats them identically.
type Feed interface {
	// Advance attempts to produce the next observation for every tracked
	// symbol, returning false once the feed is exhausted.
	Advance() bool

	// Latest returns up to n of the most recent bars already produced for
	// symbol, oldest first, fewer if fewer exist. A symbol outside the
	// feed's universe yields an empty slice; the universe itself is
	// validated at construction, so an unknown symbol here is a wiring bug
	// in the caller, not a data condition.
	Latest(symbol string, n int) []Bar

	// Symbols returns the tracked symbol universe in deterministic order.
	Symbols() []string
}
