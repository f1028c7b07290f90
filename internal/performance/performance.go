// Package performance provides pure analytics over a finished equity or
// returns series: a risk-adjusted return ratio and drawdown extraction.
package performance

import (
	"errors"
	"math"
	"sort"
)

// Periods is the annualization factor for the Sharpe ratio.
type Periods float64

const (
	Daily  Periods = 252
	Hourly Periods = 252 * 6.5
	Minute Periods = 252 * 6.5 * 60
)

var (
	// ErrEmptySeries is returned when analytics receive no data points.
	ErrEmptySeries = errors.New("performance: empty input series")
	// ErrZeroVariance is returned when the returns series has zero
	// standard deviation, leaving the ratio undefined.
	ErrZeroVariance = errors.New("performance: zero variance in returns")
	// ErrRiskFreeRange is returned when the risk-free rate falls outside [0,1].
	ErrRiskFreeRange = errors.New("performance: risk-free rate must lie in [0,1]")
)

// SharpeRatio computes sqrt(periods) * mean(returns) / stdev(returns) over
// per-period simple returns, benchmarked against zero.
func SharpeRatio(returns []float64, riskFree float64, periods Periods) (float64, error) {
	if len(returns) == 0 {
		return 0, ErrEmptySeries
	}
	if riskFree < 0 || riskFree > 1 {
		return 0, ErrRiskFreeRange
	}

	m := mean(returns)
	sd := stdev(returns, m)
	if sd == 0 {
		return 0, ErrZeroVariance
	}
	return math.Sqrt(float64(periods)) * m / sd, nil
}

// Drawdown is one point of the drawdown series: the peak-to-current equity
// decline and the number of consecutive periods spent in drawdown.
type Drawdown struct {
	Drawdown float64
	Duration int
}

// Drawdowns walks the equity curve tracking the running high-water mark and
// returns every point's drawdown and duration, sorted by drawdown descending.
// The sort is stable, so ties resolve in chronological order.
func Drawdowns(equity []float64) ([]Drawdown, error) {
	if len(equity) == 0 {
		return nil, ErrEmptySeries
	}

	out := make([]Drawdown, len(equity))
	hwm := equity[0]
	for i, v := range equity {
		if v > hwm {
			hwm = v
		}
		dd := hwm - v
		duration := 0
		if dd != 0 && i > 0 {
			duration = out[i-1].Duration + 1
		}
		out[i] = Drawdown{Drawdown: dd, Duration: duration}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Drawdown > out[j].Drawdown })
	return out, nil
}

// MaxDrawdown returns the single deepest drawdown point and its duration.
func MaxDrawdown(equity []float64) (Drawdown, error) {
	all, err := Drawdowns(equity)
	if err != nil {
		return Drawdown{}, err
	}
	return all[0], nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the population standard deviation.
func stdev(xs []float64, m float64) float64 {
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
