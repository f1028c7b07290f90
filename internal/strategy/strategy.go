// Package strategy contains signal generation logic driven by market
// events. Strategies are external collaborators of the simulation core:
// they read bars through the feed's latest-bars query and emit validated
// Signal events, never touching portfolio state directly.
package strategy

import (
	"strings"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
)

// BarSource is the read-only slice of the feed contract strategies consume.
type BarSource interface {
	Latest(symbol string, n int) []data.Bar
	Symbols() []string
}

// Strategy reacts to a market event with zero or more signals.
type Strategy interface {
	OnMarket() []event.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	LookbackBars int
	Threshold    float64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params, bars BarSource) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "momentum", "trend":
		return NewMomentum(bars, params.LookbackBars, params.Threshold)
	case "", "buyhold", "buy_and_hold":
		return NewBuyAndHold(bars)
	default:
		return NewBuyAndHold(bars)
	}
}
