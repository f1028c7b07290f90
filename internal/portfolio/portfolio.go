// Package portfolio implements the accounting state machine of the
// simulator: per-symbol positions, cash, commission, and total equity,
// tracked as two append-only time series with one row per market event.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/risk"
)

// ErrNoBar is returned when the time-index update finds no bar yet for a
// tracked symbol; valuing an unseen symbol at zero would silently corrupt
// every downstream statistic.
var ErrNoBar = errors.New("portfolio: no bar available for symbol")

// BarSource is the slice of the feed contract the ledger needs.
type BarSource interface {
	Latest(symbol string, n int) []data.Bar
	Symbols() []string
}

// PositionsRow is a snapshot of per-symbol signed quantities at one market
// event.
type PositionsRow struct {
	Timestamp  time.Time
	Quantities map[string]int
}

// HoldingsRow is the mark-to-market valuation at one market event. Total is
// always Cash plus the sum of Values, by construction of the update step.
type HoldingsRow struct {
	Timestamp  time.Time
	Values     map[string]float64
	Cash       float64
	Commission float64
	Total      float64
}

// Snapshot is a copy of the in-flight state between market events.
type Snapshot struct {
	Positions  map[string]int
	Values     map[string]float64
	Cash       float64
	Commission float64
	Total      float64
}

// Portfolio is the ledger. It reacts to Signal events by sizing orders and
// to Fill events by mutating the in-flight positions and cash; every Market
// event freezes one row into each series. It is owned by a single
// simulation run and is not safe for concurrent use.
type Portfolio struct {
	bars   BarSource
	events event.Publisher
	sizer  Sizer
	limits risk.Limits
	log    zerolog.Logger

	symbols     []string
	initialCash float64

	positions []PositionsRow
	holdings  []HoldingsRow

	currentPositions  map[string]int
	currentValues     map[string]float64
	currentCash       float64
	currentCommission float64
	currentTotal      float64
}

// Option configures Portfolio construction.
type Option func(*Portfolio)

// WithSizer replaces the default naive sizing policy.
func WithSizer(s Sizer) Option {
	return func(p *Portfolio) { p.sizer = s }
}

// WithLimits installs pre-trade risk limits.
func WithLimits(l risk.Limits) Option {
	return func(p *Portfolio) { p.limits = l }
}

// New builds a ledger seeded with one all-zero row at the start timestamp.
func New(bars BarSource, events event.Publisher, start time.Time, initialCash float64, log zerolog.Logger, opts ...Option) (*Portfolio, error) {
	if bars == nil {
		return nil, fmt.Errorf("portfolio requires a bar source")
	}
	if events == nil {
		return nil, fmt.Errorf("portfolio requires an event publisher")
	}
	symbols := bars.Symbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("portfolio requires at least one symbol")
	}
	if initialCash <= 0 {
		return nil, fmt.Errorf("initial cash must be positive, got %f", initialCash)
	}

	p := &Portfolio{
		bars:             bars,
		events:           events,
		sizer:            NewNaiveSizer(DefaultSizingUnit),
		log:              log,
		symbols:          symbols,
		initialCash:      initialCash,
		currentPositions: make(map[string]int, len(symbols)),
		currentValues:    make(map[string]float64, len(symbols)),
		currentCash:      initialCash,
		currentTotal:     initialCash,
	}
	for _, sym := range symbols {
		p.currentPositions[sym] = 0
		p.currentValues[sym] = 0
	}
	for _, opt := range opts {
		opt(p)
	}

	p.positions = append(p.positions, PositionsRow{
		Timestamp:  start,
		Quantities: copyInts(p.currentPositions),
	})
	p.holdings = append(p.holdings, HoldingsRow{
		Timestamp:  start,
		Values:     copyFloats(p.currentValues),
		Cash:       initialCash,
		Commission: 0,
		Total:      initialCash,
	})
	return p, nil
}

// UpdateTimeIndex appends one positions row and one holdings row for the
// market event that just fired, valuing every position at its latest close.
// It fails with ErrNoBar if any tracked symbol has produced no bar yet.
func (p *Portfolio) UpdateTimeIndex() error {
	closes := make(map[string]float64, len(p.symbols))
	var ts time.Time
	for i, sym := range p.symbols {
		latest := p.bars.Latest(sym, 1)
		if len(latest) == 0 {
			return fmt.Errorf("%w: %s", ErrNoBar, sym)
		}
		closes[sym] = latest[0].Close
		if i == 0 {
			ts = latest[0].Timestamp
		}
	}

	p.positions = append(p.positions, PositionsRow{
		Timestamp:  ts,
		Quantities: copyInts(p.currentPositions),
	})

	values := make(map[string]float64, len(p.symbols))
	total := p.currentCash
	for _, sym := range p.symbols {
		mv := float64(p.currentPositions[sym]) * closes[sym]
		values[sym] = mv
		total += mv
	}
	p.holdings = append(p.holdings, HoldingsRow{
		Timestamp:  ts,
		Values:     values,
		Cash:       p.currentCash,
		Commission: p.currentCommission,
		Total:      total,
	})
	return nil
}

// OnSignal sizes the signal against the current position and, if the policy
// and risk limits agree, publishes a market order.
func (p *Portfolio) OnSignal(sig event.Signal) error {
	current, tracked := p.currentPositions[sig.Symbol]
	if !tracked {
		return fmt.Errorf("signal for untracked symbol %s", sig.Symbol)
	}

	qty, side, ok := p.sizer.Size(sig, current)
	if !ok || qty == 0 {
		p.log.Debug().Str("symbol", sig.Symbol).Str("direction", string(sig.Direction)).Msg("signal produced no order")
		return nil
	}

	delta := qty
	if side == event.Sell {
		delta = -qty
	}
	if !p.limits.AllowPosition(current, delta) {
		p.log.Warn().Str("symbol", sig.Symbol).Int("qty", qty).Msg("order rejected by position limit")
		return nil
	}
	if latest := p.bars.Latest(sig.Symbol, 1); len(latest) > 0 {
		if notional := float64(qty) * latest[0].Close; !p.limits.Allow(notional) {
			p.log.Warn().Str("symbol", sig.Symbol).Float64("notional", notional).Msg("order rejected by notional limit")
			return nil
		}
	}

	order, err := event.NewOrder(sig.Symbol, event.MarketOrder, qty, side)
	if err != nil {
		return fmt.Errorf("build order from signal: %w", err)
	}
	p.events.Publish(order)
	p.log.Debug().Str("symbol", order.Symbol).Str("side", string(order.Side)).Int("qty", order.Quantity).Msg("order generated")
	return nil
}

// OnFill applies a fill to the in-flight state: signed position delta, cost
// basis contribution at the fill price, and cash net of commission. The
// next UpdateTimeIndex freezes the result into the series.
func (p *Portfolio) OnFill(fill event.Fill) error {
	if _, tracked := p.currentPositions[fill.Symbol]; !tracked {
		return fmt.Errorf("fill for untracked symbol %s", fill.Symbol)
	}

	delta := fill.Quantity
	if fill.Side == event.Sell {
		delta = -fill.Quantity
	}
	cost := float64(delta) * fill.Price

	p.currentPositions[fill.Symbol] += delta
	p.currentValues[fill.Symbol] += cost
	p.currentCommission += fill.Commission
	p.currentCash -= cost + fill.Commission
	p.currentTotal = p.currentCash
	for _, v := range p.currentValues {
		p.currentTotal += v
	}

	p.log.Debug().
		Str("symbol", fill.Symbol).
		Str("side", string(fill.Side)).
		Int("qty", fill.Quantity).
		Float64("price", fill.Price).
		Float64("commission", fill.Commission).
		Msg("fill applied")
	return nil
}

// Positions returns the append-only positions series, oldest first.
func (p *Portfolio) Positions() []PositionsRow {
	out := make([]PositionsRow, len(p.positions))
	copy(out, p.positions)
	return out
}

// Holdings returns the append-only holdings series, oldest first.
func (p *Portfolio) Holdings() []HoldingsRow {
	out := make([]HoldingsRow, len(p.holdings))
	copy(out, p.holdings)
	return out
}

// Current returns a copy of the in-flight state between market events.
func (p *Portfolio) Current() Snapshot {
	return Snapshot{
		Positions:  copyInts(p.currentPositions),
		Values:     copyFloats(p.currentValues),
		Cash:       p.currentCash,
		Commission: p.currentCommission,
		Total:      p.currentTotal,
	}
}

// Symbols returns the tracked universe.
func (p *Portfolio) Symbols() []string {
	out := make([]string, len(p.symbols))
	copy(out, p.symbols)
	return out
}

func copyInts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyFloats(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
