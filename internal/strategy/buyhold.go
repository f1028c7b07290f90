package strategy

import (
	"github.com/FernandoHsu/myBackTester/internal/event"
)

// BuyAndHold goes long each symbol on its first bar and then stays silent.
// It is the reference strategy for exercising the full event pipeline.
type BuyAndHold struct {
	bars   BarSource
	bought map[string]bool
}

// NewBuyAndHold builds the strategy over the feed's symbol universe.
func NewBuyAndHold(bars BarSource) *BuyAndHold {
	return &BuyAndHold{
		bars:   bars,
		bought: make(map[string]bool),
	}
}

// Name returns the identifier for logging.
func (s *BuyAndHold) Name() string { return "BuyAndHold" }

// OnMarket emits one LONG signal per symbol the first time a bar exists for
// it.
func (s *BuyAndHold) OnMarket() []event.Signal {
	var signals []event.Signal
	for _, sym := range s.bars.Symbols() {
		if s.bought[sym] {
			continue
		}
		latest := s.bars.Latest(sym, 1)
		if len(latest) == 0 {
			continue
		}
		sig, err := event.NewSignal(sym, latest[0].Timestamp, event.Long, 1.0)
		if err != nil {
			continue
		}
		signals = append(signals, sig)
		s.bought[sym] = true
	}
	return signals
}
