package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// LiveFeed adapts a stream of bars to the Feed contract so the dispatch
// loop treats live operation exactly like historic replay. Incoming bars
// are buffered per symbol; Advance blocks until every tracked symbol has a
// fresh bar, forward-filling from the last seen bar for symbols that lag
// once the stream closes. The feed is exhausted when the source channel is
// closed and the buffers are drained.
type LiveFeed struct {
	symbols []string
	in      <-chan Bar
	pending map[string][]Bar
	seen    map[string][]Bar
	closed  bool
	log     zerolog.Logger
}

// NewLive wraps a bar channel for the given symbol universe.
func NewLive(in <-chan Bar, symbols []string, log zerolog.Logger) (*LiveFeed, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("live feed requires at least one symbol")
	}
	universe := append([]string(nil), symbols...)
	sort.Strings(universe)

	pending := make(map[string][]Bar, len(universe))
	seen := make(map[string][]Bar, len(universe))
	for _, sym := range universe {
		pending[sym] = nil
		seen[sym] = nil
	}
	return &LiveFeed{
		symbols: universe,
		in:      in,
		pending: pending,
		seen:    seen,
		log:     log,
	}, nil
}

// Advance blocks until a full row (one new bar per symbol) can be surfaced,
// then appends it to the seen series. Bars for symbols outside the universe
// are dropped with a warning. Returns false once the stream is closed and
// nothing remains to surface.
func (f *LiveFeed) Advance() bool {
	for {
		if f.rowReady() {
			f.surfaceRow()
			return true
		}
		if f.closed {
			// Partial tail: surface what arrived, forward-filling the
			// rest from history where possible.
			if f.anyPending() {
				f.surfaceRow()
				return true
			}
			return false
		}
		bar, ok := <-f.in
		if !ok {
			f.closed = true
			continue
		}
		if _, tracked := f.pending[bar.Symbol]; !tracked {
			f.log.Warn().Str("symbol", bar.Symbol).Msg("dropping bar for untracked symbol")
			continue
		}
		f.pending[bar.Symbol] = append(f.pending[bar.Symbol], bar)
	}
}

func (f *LiveFeed) rowReady() bool {
	for _, sym := range f.symbols {
		if len(f.pending[sym]) == 0 {
			return false
		}
	}
	return true
}

func (f *LiveFeed) anyPending() bool {
	for _, sym := range f.symbols {
		if len(f.pending[sym]) > 0 {
			return true
		}
	}
	return false
}

func (f *LiveFeed) surfaceRow() {
	for _, sym := range f.symbols {
		if queue := f.pending[sym]; len(queue) > 0 {
			f.seen[sym] = append(f.seen[sym], queue[0])
			f.pending[sym] = queue[1:]
		} else if hist := f.seen[sym]; len(hist) > 0 {
			f.seen[sym] = append(hist, hist[len(hist)-1])
		}
	}
}

// Latest returns up to n of the bars already surfaced for symbol, oldest
// first. Unknown symbols yield an empty slice.
func (f *LiveFeed) Latest(symbol string, n int) []Bar {
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
func (f *LiveFeed) Symbols() []string {
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

type wireBar struct {
	Symbol       string  `json:"symbol"`
	TimestampMs  int64   `json:"ts"`
	Open         float64 `json:"open"`
	Low          float64 `json:"low"`
	High         float64 `json:"high"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"oi"`
}

// StreamBars connects to a websocket bar source and delivers decoded bars
// until ctx is cancelled, reconnecting with backoff on transport errors.
// The returned channel is closed when the stream ends.
func StreamBars(ctx context.Context, url string, log zerolog.Logger) <-chan Bar {
	out := make(chan Bar, 256)
	go func() {
		defer close(out)
		backoff := time.Second
		const maxBackoff = 30 * time.Second
		for {
			if ctx.Err() != nil {
				return
			}
			if err := consumeBarStream(ctx, url, out, log); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("bar stream disconnected, retrying")
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return
				}
				backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
				continue
			}
			return
		}
	}()
	return out
}

func consumeBarStream(ctx context.Context, url string, out chan<- Bar, log zerolog.Logger) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info().Str("url", url).Msg("connected bar stream")
	conn.SetReadLimit(1 << 20)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var wb wireBar
		if err := json.Unmarshal(payload, &wb); err != nil {
			log.Warn().Err(err).Msg("skipping malformed bar payload")
			continue
		}
		bar := Bar{
			Symbol:       wb.Symbol,
			Timestamp:    time.UnixMilli(wb.TimestampMs).UTC(),
			Open:         wb.Open,
			Low:          wb.Low,
			High:         wb.High,
			Close:        wb.Close,
			Volume:       wb.Volume,
			OpenInterest: wb.OpenInterest,
		}
		select {
		case out <- bar:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
