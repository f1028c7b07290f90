package portfolio

import (
	"errors"
	"math"
	"testing"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/performance"
)

func (s *stubBars) set(symbol string, close float64, n int) {
	s.latest[symbol] = data.Bar{Symbol: symbol, Timestamp: day(n), Close: close}
}

func TestReturnsAndEquityCurve(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 100, event.Buy, 100, 0)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}
	if err := p.UpdateTimeIndex(); err != nil {
		t.Fatalf("UpdateTimeIndex returned error: %v", err)
	}

	bars.set("AAPL", 110, 3)
	if err := p.UpdateTimeIndex(); err != nil {
		t.Fatalf("UpdateTimeIndex returned error: %v", err)
	}

	returns := p.Returns()
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	// Row totals: 10000 (seed), 10000 (bought at the mark), 11000.
	if math.Abs(returns[0]-0) > 1e-9 || math.Abs(returns[1]-0.1) > 1e-9 {
		t.Fatalf("unexpected returns: %+v", returns)
	}

	curve := p.EquityCurve()
	if len(curve) != 3 {
		t.Fatalf("expected 3 curve points, got %d", len(curve))
	}
	if math.Abs(curve[2]-1.1) > 1e-9 {
		t.Fatalf("unexpected final equity: %.4f", curve[2])
	}
}

func TestSummarizeFlatRunFails(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	// No trades: every total equals starting cash, so the ratio is undefined.
	for i := 0; i < 3; i++ {
		if err := p.UpdateTimeIndex(); err != nil {
			t.Fatalf("UpdateTimeIndex returned error: %v", err)
		}
	}
	if _, err := p.Summarize(0, performance.Daily); !errors.Is(err, performance.ErrZeroVariance) {
		t.Fatalf("expected ErrZeroVariance, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	bars := newStub(map[string]float64{"AAPL": 100}, day(2))
	p := mustPortfolio(t, bars, event.NewQueue(4), 10000)

	fill, _ := event.NewFill(day(2), "AAPL", "SIM", 100, event.Buy, 100, 0)
	if err := p.OnFill(fill); err != nil {
		t.Fatalf("OnFill returned error: %v", err)
	}
	closes := []float64{100, 120, 90, 110}
	for i, c := range closes {
		bars.set("AAPL", c, 2+i)
		if err := p.UpdateTimeIndex(); err != nil {
			t.Fatalf("UpdateTimeIndex returned error: %v", err)
		}
	}

	summary, err := p.Summarize(0, performance.Daily)
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if math.Abs(summary.TotalReturn-0.1) > 1e-9 {
		t.Fatalf("unexpected total return: %.4f", summary.TotalReturn)
	}
	if summary.MaxDrawdown <= 0 {
		t.Fatalf("expected positive max drawdown, got %.4f", summary.MaxDrawdown)
	}
	if summary.DrawdownDuration != 1 {
		t.Fatalf("expected drawdown duration 1, got %d", summary.DrawdownDuration)
	}
}
