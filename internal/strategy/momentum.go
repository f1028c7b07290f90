package strategy

import (
	"math"

	"github.com/FernandoHsu/myBackTester/internal/event"
)

// Momentum goes long when the close-to-close change over a lookback window
// exceeds a threshold and exits when momentum reverses by the same amount.
// Signal strength scales with how far past the threshold the move went,
// capped at 1.0.
type Momentum struct {
	bars      BarSource
	lookback  int
	threshold float64
	long      map[string]bool
}

// NewMomentum builds a momentum strategy with defensive defaults.
func NewMomentum(bars BarSource, lookback int, threshold float64) *Momentum {
	if lookback <= 1 {
		lookback = 5
	}
	if threshold <= 0 {
		threshold = 0.02
	}
	return &Momentum{
		bars:      bars,
		lookback:  lookback,
		threshold: threshold,
		long:      make(map[string]bool),
	}
}

// Name returns the identifier for logging.
func (s *Momentum) Name() string { return "Momentum" }

// OnMarket evaluates each symbol's lookback window.
func (s *Momentum) OnMarket() []event.Signal {
	var signals []event.Signal
	for _, sym := range s.bars.Symbols() {
		window := s.bars.Latest(sym, s.lookback)
		if len(window) < s.lookback {
			continue
		}
		oldest, latest := window[0], window[len(window)-1]
		if oldest.Close <= 0 {
			continue
		}
		change := (latest.Close - oldest.Close) / oldest.Close

		switch {
		case !s.long[sym] && change >= s.threshold:
			// Half strength at the trigger, full strength at twice it.
			strength := math.Min(1.0, change/(2*s.threshold))
			sig, err := event.NewSignal(sym, latest.Timestamp, event.Long, strength)
			if err != nil {
				continue
			}
			signals = append(signals, sig)
			s.long[sym] = true
		case s.long[sym] && change <= -s.threshold:
			sig, err := event.NewSignal(sym, latest.Timestamp, event.Exit, 1.0)
			if err != nil {
				continue
			}
			signals = append(signals, sig)
			s.long[sym] = false
		}
	}
	return signals
}
