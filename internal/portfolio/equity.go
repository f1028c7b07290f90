package portfolio

import (
	"fmt"

	"github.com/FernandoHsu/myBackTester/internal/performance"
)

// Returns computes per-period simple returns over successive holdings
// totals. With n rows (seed included) it yields n-1 values.
func (p *Portfolio) Returns() []float64 {
	if len(p.holdings) < 2 {
		return nil
	}
	out := make([]float64, 0, len(p.holdings)-1)
	for i := 1; i < len(p.holdings); i++ {
		prev := p.holdings[i-1].Total
		out = append(out, p.holdings[i].Total/prev-1)
	}
	return out
}

// EquityCurve compounds the returns into a normalized curve starting at 1.0.
func (p *Portfolio) EquityCurve() []float64 {
	returns := p.Returns()
	curve := make([]float64, 0, len(returns)+1)
	equity := 1.0
	curve = append(curve, equity)
	for _, r := range returns {
		equity *= 1 + r
		curve = append(curve, equity)
	}
	return curve
}

// Summary condenses a finished run into headline statistics.
type Summary struct {
	TotalReturn      float64
	SharpeRatio      float64
	MaxDrawdown      float64
	DrawdownDuration int
}

// Summarize runs the analytics over the accumulated series. It shares their
// domain errors: an empty or flat run cannot be summarized.
func (p *Portfolio) Summarize(riskFree float64, periods performance.Periods) (Summary, error) {
	returns := p.Returns()
	curve := p.EquityCurve()

	sharpe, err := performance.SharpeRatio(returns, riskFree, periods)
	if err != nil {
		return Summary{}, fmt.Errorf("sharpe ratio: %w", err)
	}
	dd, err := performance.MaxDrawdown(curve)
	if err != nil {
		return Summary{}, fmt.Errorf("max drawdown: %w", err)
	}

	return Summary{
		TotalReturn:      curve[len(curve)-1] - 1,
		SharpeRatio:      sharpe,
		MaxDrawdown:      dd.Drawdown,
		DrawdownDuration: dd.Duration,
	}, nil
}
