// Package risk holds pre-trade guard-rails applied before orders are
// enqueued. Zero-valued limits mean unlimited.
package risk

// Limits caps what a single order may do to the portfolio.
type Limits struct {
	MaxNotionalPerTrade  float64
	MaxPositionPerSymbol int
}

// Allow reports whether an order with the given notional value passes.
func (l Limits) Allow(notional float64) bool {
	return l.MaxNotionalPerTrade <= 0 || notional <= l.MaxNotionalPerTrade
}

// AllowPosition reports whether the post-fill absolute position would stay
// within the per-symbol cap.
func (l Limits) AllowPosition(current, delta int) bool {
	if l.MaxPositionPerSymbol <= 0 {
		return true
	}
	next := current + delta
	if next < 0 {
		next = -next
	}
	return next <= l.MaxPositionPerSymbol
}
