package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/risk"
)

func day(n int) time.Time {
	return time.Date(2020, 1, n, 0, 0, 0, 0, time.UTC)
}

// stubBars serves a fixed latest bar per symbol.
type stubBars struct {
	symbols []string
	latest  map[string]data.Bar
}

func (s *stubBars) Latest(symbol string, n int) []data.Bar {
	b, ok := s.latest[symbol]
	if !ok || n <= 0 {
		return nil
	}
	return []data.Bar{b}
}

func (s *stubBars) Symbols() []string { return s.symbols }

func newStub(closes map[string]float64, ts time.Time) *stubBars {
	s := &stubBars{latest: make(map[string]data.Bar)}
	for sym, c := range closes {
		s.symbols = append(s.symbols, sym)
		s.latest[sym] = data.Bar{Symbol: sym, Timestamp: ts, Close: c}
	}
	return s
}

func mustPortfolio(t *testing.T, bars BarSource, q *event.Queue, cash float64, opts ...Option) *Portfolio {
	t.Helper()
	p, err := New(bars, q, day(1), cash, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return p
}

func TestSeedRows(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(1))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	positions, holdings := p.Positions(), p.Holdings()
	if len(positions) != 1 || len(holdings) != 1 {
		t.Fatalf("expected one seed row each, got %d/%d", len(positions), len(holdings))
	}
	if positions[0].Quantities["AAPL"] != 0 {
		t.Fatalf("expected zero seed position")
	}
	if holdings[0].Cash != 10000 || holdings[0].Total != 10000 || holdings[0].Commission != 0 {
		t.Fatalf("unexpected seed holdings: %+v", holdings[0])
	}
}

func TestHoldingsTotalInvariant(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100, "MSFT": 50}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 30, event.Buy, 100, 1.3)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}
	if err := p.UpdateTimeIndex(); err != nil {
		t.Fatalf("UpdateTimeIndex returned error: %v", err)
	}

	fill2, _ := event.NewFill(day(2), "MSFT", "SIM", 10, event.Sell, 50, 1.3)
	if err := p.OnFill(fill2); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}
	if err := p.UpdateTimeIndex(); err != nil {
		t.Fatalf("UpdateTimeIndex returned error: %v", err)
	}

	for i, row := range p.Holdings() {
		sum := row.Cash
		for _, v := range row.Values {
			sum += v
		}
		if math.Abs(sum-row.Total) > 1e-9 {
			t.Fatalf("row %d: total %.4f != cash+values %.4f", i, row.Total, sum)
		}
	}
}

func TestRowGrowthPerMarketEvent(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	for i := 0; i < 3; i++ {
		if err := p.UpdateTimeIndex(); err != nil {
			t.Fatalf("UpdateTimeIndex returned error: %v", err)
		}
	}
	if len(p.Positions()) != 4 || len(p.Holdings()) != 4 {
		t.Fatalf("expected seed + 3 rows, got %d/%d", len(p.Positions()), len(p.Holdings()))
	}
}

func TestOnSignalNaiveSizing(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	q := event.NewQueue(4)
	p := mustPortfolio(t, bars, q, 100000)

	sig, _ := event.NewSignal("AAPL", day(2), event.Long, 1.0)
	if err := p.OnSignal(sig); err != nil {
		t.Fatalf("OnSignal returned error: %v", err)
	}

	ev, ok := q.Pop()
	if !ok {
		t.Fatalf("expected an order to be published")
	}
	order := ev.(event.Order)
	if order.Symbol != "AAPL" || order.Kind != event.MarketOrder || order.Quantity != 100 || order.Side != event.Buy {
		t.Fatalf("unexpected order: %+v", order)
	}

	// Already long: the same signal must produce nothing.
	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 50, event.Buy, 100, 0)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}
	if err := p.OnSignal(sig); err != nil {
		t.Fatalf("OnSignal returned error: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("expected no order while already long, got %d events", q.Len())
	}
}

func TestOnSignalExitFlattens(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	q := event.NewQueue(4)
	p := mustPortfolio(t, bars, q, 100000)

	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 70, event.Buy, 100, 0)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}

	sig, _ := event.NewSignal("AAPL", day(2), event.Exit, 1.0)
	if err := p.OnSignal(sig); err != nil {
		t.Fatalf("OnSignal returned error: %v", err)
	}
	ev, ok := q.Pop()
	if !ok {
		t.Fatalf("expected flattening order")
	}
	order := ev.(event.Order)
	if order.Quantity != 70 || order.Side != event.Sell {
		t.Fatalf("expected SELL 70 to flatten, got %+v", order)
	}
}

func TestOnSignalRiskLimits(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	q := event.NewQueue(4)
	p := mustPortfolio(t, bars, q, 100000, WithLimits(risk.Limits{MaxNotionalPerTrade: 5000}))

	// 100 shares at close 100 is 10000 notional, over the cap.
	sig, _ := event.NewSignal("AAPL", day(2), event.Long, 1.0)
	if err := p.OnSignal(sig); err != nil {
		t.Fatalf("OnSignal returned error: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("expected order rejected by notional limit")
	}
}

func TestFillAccounting(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 110}, day(3))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 100, event.Buy, 10, 2)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}

	cur := p.Current()
	if cur.Positions["AAPL"] != 100 {
		t.Fatalf("expected position 100, got %d", cur.Positions["AAPL"])
	}
	if math.Abs(cur.Cash-(10000-1000-2)) > 1e-9 {
		t.Fatalf("unexpected cash: %.2f", cur.Cash)
	}
	if cur.Commission != 2 {
		t.Fatalf("unexpected commission: %.2f", cur.Commission)
	}

	if err := p.UpdateTimeIndex(); err != nil {
		t.Fatalf("UpdateTimeIndex returned error: %v", err)
	}
	last := p.Holdings()[len(p.Holdings())-1]
	// Marked at close 110: total = 8998 cash + 11000 market value.
	if math.Abs(last.Total-(8998+11000)) > 1e-9 {
		t.Fatalf("unexpected total: %.2f", last.Total)
	}
}

func TestReplayDeterminism(t *testing.T) {
	run := func() Snapshot {
		bars := newStub(map[string]float64{"AAPL": 105}, day(2))
		p := mustPortfolio(t, bars, event.NewQueue(8), 50000)
		buy, _ := event.NewFill(day(2), "AAPL", "SIM", 100, event.Buy, 100, 1.3)
		sell, _ := event.NewFill(day(3), "AAPL", "SIM", 40, event.Sell, 104, 1.3)
		for _, f := range []event.Fill{buy, sell} {
			if err := p.OnFill(f); err != nil {
				t.Fatalf("OnFill returned error: %v", err)
			}
			if err := p.UpdateTimeIndex(); err != nil {
				t.Fatalf("UpdateTimeIndex returned error: %v", err)
			}
		}
		return p.Current()
	}

	a, b := run(), run()
	if a.Cash != b.Cash || a.Commission != b.Commission || a.Total != b.Total {
		t.Fatalf("replay diverged: %+v vs %+v", a, b)
	}
	for sym, qty := range a.Positions {
		if b.Positions[sym] != qty {
			t.Fatalf("replay position diverged for %s", sym)
		}
	}
}

func TestUpdateTimeIndexNoBar(t *testing.T) {
	bars := &stubBars{symbols: []string{"AAPL"}, latest: map[string]data.Bar{}}
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	if err := p.UpdateTimeIndex(); !errors.Is(err, ErrNoBar) {
		t.Fatalf("expected ErrNoBar, got %v", err)
	}
}

func TestOnSignalUntrackedSymbol(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	sig, _ := event.NewSignal("TSLA", day(2), event.Long, 1.0)
	if err := p.OnSignal(sig); err == nil {
		t.Fatalf("expected error for untracked symbol")
	}
}
