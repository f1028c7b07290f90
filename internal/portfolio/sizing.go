package portfolio

import (
	"math"

	"github.com/FernandoHsu/myBackTester/internal/event"
)

// Sizer maps a signal and the current position to an order quantity and
// side. Implementations are pure policies; returning ok=false means the
// signal warrants no order.
type Sizer interface {
	Size(sig event.Signal, current int) (qty int, side event.Side, ok bool)
}

// NaiveSizer opens a fixed-unit position scaled by signal strength and
// flattens on exit. It performs no pyramiding or rebalancing: a LONG while
// already long (or SHORT while short) produces nothing.
type NaiveSizer struct {
	Unit int
}

// DefaultSizingUnit is the share count a strength-1.0 signal targets.
const DefaultSizingUnit = 100

// NewNaiveSizer builds a NaiveSizer, falling back to DefaultSizingUnit for
// non-positive units.
func NewNaiveSizer(unit int) NaiveSizer {
	if unit <= 0 {
		unit = DefaultSizingUnit
	}
	return NaiveSizer{Unit: unit}
}

// Size implements Sizer.
func (s NaiveSizer) Size(sig event.Signal, current int) (int, event.Side, bool) {
	target := int(math.Floor(sig.Strength * float64(s.Unit)))

	switch {
	case sig.Direction == event.Long && current == 0:
		return target, event.Buy, true
	case sig.Direction == event.Short && current == 0:
		return target, event.Sell, true
	case sig.Direction == event.Exit && current > 0:
		return current, event.Sell, true
	case sig.Direction == event.Exit && current < 0:
		return -current, event.Buy, true
	}
	return 0, "", false
}
