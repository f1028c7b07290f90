// Package event defines the closed set of events exchanged between the
// simulator's components. Events are immutable value objects: once
// constructed and enqueued they are never modified, so they can be passed
// between the feed, strategy, portfolio, and execution layers without
// synchronization.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type tags the event variants routed by the dispatch loop.
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeSignal Type = "SIGNAL"
	TypeOrder  Type = "ORDER"
	TypeFill   Type = "FILL"
)

// Event is implemented by every variant; the dispatch loop switches on the
// concrete type, Type exists for logging and metrics labels.
type Event interface {
	Type() Type
}

// Direction expresses the trading intent carried by a Signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	Exit  Direction = "EXIT"
)

// Side enumerates order and fill directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderKind distinguishes market from limit orders.
type OrderKind string

const (
	MarketOrder OrderKind = "MARKET"
	LimitOrder  OrderKind = "LIMIT"
)

// Market announces that a new observation is available for every tracked
// symbol. It carries no payload; consumers query the bar feed directly.
type Market struct{}

// Type implements Event.
func (Market) Type() Type { return TypeMarket }

// Signal is produced by a strategy and consumed by the portfolio, which
// decides whether it warrants an order.
type Signal struct {
	Symbol    string
	Timestamp time.Time
	Direction Direction
	Strength  float64
}

// Type implements Event.
func (Signal) Type() Type { return TypeSignal }

// NewSignal validates and builds a Signal. Strength scales the sizing
// policy's target quantity and must be non-negative.
func NewSignal(symbol string, ts time.Time, direction Direction, strength float64) (Signal, error) {
	switch direction {
	case Long, Short, Exit:
	default:
		return Signal{}, fmt.Errorf("invalid signal direction %q", direction)
	}
	if strength < 0 {
		return Signal{}, fmt.Errorf("signal strength must be non-negative, got %f", strength)
	}
	if symbol == "" {
		return Signal{}, fmt.Errorf("signal requires a symbol")
	}
	return Signal{Symbol: symbol, Timestamp: ts, Direction: direction, Strength: strength}, nil
}

// Order is produced by the portfolio and consumed by the execution handler.
type Order struct {
	ID       string
	Symbol   string
	Kind     OrderKind
	Quantity int
	Side     Side
}

// Type implements Event.
func (Order) Type() Type { return TypeOrder }

// NewOrder validates and builds an Order, assigning a fresh ID so fills can
// be correlated back to the order that caused them.
func NewOrder(symbol string, kind OrderKind, quantity int, side Side) (Order, error) {
	switch kind {
	case MarketOrder, LimitOrder:
	default:
		return Order{}, fmt.Errorf("invalid order kind %q", kind)
	}
	switch side {
	case Buy, Sell:
	default:
		return Order{}, fmt.Errorf("invalid order side %q", side)
	}
	if quantity < 0 {
		return Order{}, fmt.Errorf("order quantity must be non-negative, got %d", quantity)
	}
	if symbol == "" {
		return Order{}, fmt.Errorf("order requires a symbol")
	}
	return Order{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		Kind:     kind,
		Quantity: quantity,
		Side:     side,
	}, nil
}

// Fill reports that an order transacted: realized price, quantity, and the
// commission charged by the venue.
type Fill struct {
	Timestamp  time.Time
	Symbol     string
	Venue      string
	Quantity   int
	Side       Side
	Price      float64
	Commission float64
	OrderID    string
}

// Type implements Event.
func (Fill) Type() Type { return TypeFill }

// NewFill validates and builds a Fill.
func NewFill(ts time.Time, symbol, venue string, quantity int, side Side, price, commission float64) (Fill, error) {
	switch side {
	case Buy, Sell:
	default:
		return Fill{}, fmt.Errorf("invalid fill side %q", side)
	}
	if quantity < 0 {
		return Fill{}, fmt.Errorf("fill quantity must be non-negative, got %d", quantity)
	}
	if price < 0 {
		return Fill{}, fmt.Errorf("fill price must be non-negative, got %f", price)
	}
	if commission < 0 {
		return Fill{}, fmt.Errorf("fill commission must be non-negative, got %f", commission)
	}
	if symbol == "" {
		return Fill{}, fmt.Errorf("fill requires a symbol")
	}
	return Fill{
		Timestamp:  ts,
		Symbol:     symbol,
		Venue:      venue,
		Quantity:   quantity,
		Side:       side,
		Price:      price,
		Commission: commission,
	}, nil
}
