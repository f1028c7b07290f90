package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// HistoricFeed replays pre-loaded bars. At construction every symbol's
// series is reindexed onto the union of all symbols' timestamps, with gaps
// filled by repeating the symbol's most recent prior bar (forward-fill).
// Each Advance therefore yields exactly one bar per symbol that has started
// trading, and the whole feed is exhausted once the cursor passes the last
// union timestamp.
type HistoricFeed struct {
	symbols   []string
	index     []time.Time
	aligned   map[string][]*Bar
	seen      map[string][]Bar
	cursor    int
	exhausted bool
	log       zerolog.Logger
}

// NewHistoric builds a replay feed from per-symbol bar series. Every symbol
// must carry at least one bar; series are sorted by timestamp before the
// union index is built. An empty universe or an empty series is a
// configuration error.
func NewHistoric(records map[string][]Bar, log zerolog.Logger) (*HistoricFeed, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("historic feed requires at least one symbol")
	}

	symbols := make([]string, 0, len(records))
	for sym, bars := range records {
		if len(bars) == 0 {
			return nil, fmt.Errorf("historic feed: symbol %s has no bars", sym)
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Union of all timestamps across all symbols.
	stamps := make(map[time.Time]struct{})
	sorted := make(map[string][]Bar, len(records))
	for _, sym := range symbols {
		bars := append([]Bar(nil), records[sym]...)
		sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		sorted[sym] = bars
		for _, b := range bars {
			stamps[b.Timestamp] = struct{}{}
		}
	}
	index := make([]time.Time, 0, len(stamps))
	for ts := range stamps {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	// Reindex with forward-fill. Entries before a symbol's first
	// observation stay nil: there is nothing to carry forward yet.
	aligned := make(map[string][]*Bar, len(records))
	for _, sym := range symbols {
		bars := sorted[sym]
		row := make([]*Bar, len(index))
		var last *Bar
		next := 0
		for i, ts := range index {
			for next < len(bars) && !bars[next].Timestamp.After(ts) {
				b := bars[next]
				last = &b
				next++
			}
			if last != nil {
				filled := *last
				filled.Timestamp = ts
				row[i] = &filled
			}
		}
		aligned[sym] = row
	}

	seen := make(map[string][]Bar, len(records))
	for _, sym := range symbols {
		seen[sym] = make([]Bar, 0, len(index))
	}

	return &HistoricFeed{
		symbols: symbols,
		index:   index,
		aligned: aligned,
		seen:    seen,
		log:     log,
	}, nil
}

// Advance surfaces the next union-index row, one bar per symbol that has
// data at or before that timestamp. It returns false once the index is
// exhausted and stays false afterwards.
func (f *HistoricFeed) Advance() bool {
	if f.exhausted {
		return false
	}
	if f.cursor >= len(f.index) {
		f.exhausted = true
		f.log.Debug().Int("bars", len(f.index)).Msg("historic feed exhausted")
		return false
	}
	for _, sym := range f.symbols {
		if b := f.aligned[sym][f.cursor]; b != nil {
			f.seen[sym] = append(f.seen[sym], *b)
		}
	}
	f.cursor++
	return true
}

// Latest returns up to n of the bars already produced for symbol, oldest
// first. Unknown symbols yield an empty slice.
func (f *HistoricFeed) Latest(symbol string, n int) []Bar {
	bars, ok := f.seen[symbol]
	if !ok || n <= 0 {
		return nil
	}
	if n > len(bars) {
		n = len(bars)
	}
	out := make([]Bar, n)
	copy(out, bars[len(bars)-n:])
	return out
}

// Symbols returns the tracked universe, sorted.
func (f *HistoricFeed) Symbols() []string {
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}
