// Package execution is the order-routing boundary: it consumes Order events
// and produces Fill events. The simulated handler fills against the latest
// replayed bar; a live gateway would satisfy the same Handler contract.
package execution

import (
	"github.com/rs/zerolog"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/metrics"
)

// Handler transacts orders. Implementations produce at most one Fill per
// order, possibly later in wall time; broker-side failures are logged and
// leave the order outstanding rather than surfacing into the event stream.
type Handler interface {
	Execute(order event.Order) error
}

// MarketListener is implemented by handlers that act on the arrival of a new
// bar, e.g. to release fills held back by simulated latency.
type MarketListener interface {
	OnMarket()
}

// BarSource is the slice of the feed contract the simulator needs to price
// fills.
type BarSource interface {
	Latest(symbol string, n int) []data.Bar
}

type pendingOrder struct {
	order     event.Order
	remaining int
}

// Simulated fills market orders at the latest close. With zero latency the
// fill is published during the same event drain as the order; with latency
// of n bars it is released on the nth subsequent market event, pricing at
// that bar's close instead.
type Simulated struct {
	bars        BarSource
	events      event.Publisher
	venue       string
	commission  CommissionPolicy
	latencyBars int
	pending     []pendingOrder
	log         zerolog.Logger
}

// SimOption configures the simulated handler.
type SimOption func(*Simulated)

// WithVenue overrides the venue name stamped on fills.
func WithVenue(venue string) SimOption {
	return func(s *Simulated) {
		if venue != "" {
			s.venue = venue
		}
	}
}

// WithCommission replaces the default IB-tiered commission policy.
func WithCommission(c CommissionPolicy) SimOption {
	return func(s *Simulated) {
		if c != nil {
			s.commission = c
		}
	}
}

// WithLatency delays fills by n market events.
func WithLatency(bars int) SimOption {
	return func(s *Simulated) {
		if bars > 0 {
			s.latencyBars = bars
		}
	}
}

// NewSimulated builds a simulated execution handler.
func NewSimulated(bars BarSource, events event.Publisher, log zerolog.Logger, opts ...SimOption) *Simulated {
	s := &Simulated{
		bars:       bars,
		events:     events,
		venue:      "SIM",
		commission: IBCommission{},
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute implements Handler. Orders that cannot be priced yet stay
// outstanding and are retried on later market events.
func (s *Simulated) Execute(order event.Order) error {
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()

	if order.Quantity == 0 {
		s.log.Error().Str("order_id", order.ID).Str("symbol", order.Symbol).Msg("rejecting zero-quantity order")
		return nil
	}
	if s.latencyBars > 0 {
		s.pending = append(s.pending, pendingOrder{order: order, remaining: s.latencyBars})
		return nil
	}
	if !s.fill(order) {
		s.pending = append(s.pending, pendingOrder{order: order, remaining: 0})
	}
	return nil
}

// OnMarket implements MarketListener, releasing due pending orders at the
// just-arrived bar's close.
func (s *Simulated) OnMarket() {
	var still []pendingOrder
	for _, p := range s.pending {
		if p.remaining > 0 {
			p.remaining--
		}
		if p.remaining > 0 || !s.fill(p.order) {
			still = append(still, p)
		}
	}
	s.pending = still
}

// Outstanding reports how many orders await a fill.
func (s *Simulated) Outstanding() int { return len(s.pending) }

func (s *Simulated) fill(order event.Order) bool {
	latest := s.bars.Latest(order.Symbol, 1)
	if len(latest) == 0 {
		s.log.Error().Str("order_id", order.ID).Str("symbol", order.Symbol).Msg("no bar to price fill, order outstanding")
		return false
	}
	bar := latest[0]

	fill, err := event.NewFill(
		bar.Timestamp, order.Symbol, s.venue, order.Quantity, order.Side,
		bar.Close, s.commission.Commission(order.Quantity, bar.Close),
	)
	if err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("building fill failed, order dropped")
		return true
	}
	fill.OrderID = order.ID

	s.events.Publish(fill)
	metrics.FillsTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Inc()
	s.log.Info().
		Str("order_id", order.ID).
		Str("symbol", fill.Symbol).
		Str("side", string(fill.Side)).
		Int("qty", fill.Quantity).
		Float64("px", fill.Price).
		Float64("commission", fill.Commission).
		Msg("order filled")
	return true
}
