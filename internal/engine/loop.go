// Package engine runs the simulation: an outer phase that advances the bar
// feed and an inner phase that drains the event queue, routing each event
// to the component that must react to it.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/execution"
	"github.com/FernandoHsu/myBackTester/internal/metrics"
	"github.com/FernandoHsu/myBackTester/internal/portfolio"
	"github.com/FernandoHsu/myBackTester/internal/strategy"
)

// Engine owns the event queue and sequences the run. Within one outer
// iteration every cascade of the market event is fully drained before the
// feed advances again, so the ledger always values positions against bars
// that were visible at that market event.
type Engine struct {
	feed  data.Feed
	strat strategy.Strategy
	port  *portfolio.Portfolio
	exec  execution.Handler
	queue *event.Queue
	log   zerolog.Logger

	pace         time.Duration
	orderTimeout time.Duration
	pendingSince time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithPace sleeps between outer iterations, approximating a live cadence.
// Pacing never reorders events.
func WithPace(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pace = d
		}
	}
}

// WithOrderTimeout arms a warning when orders stay unfilled longer than d
// of wall time. Simulated gateways fill within the run; live gateways need
// this to surface stuck orders.
func WithOrderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.orderTimeout = d
		}
	}
}

// New wires the engine. All collaborators are required.
func New(feed data.Feed, strat strategy.Strategy, port *portfolio.Portfolio, exec execution.Handler, queue *event.Queue, log zerolog.Logger, opts ...Option) (*Engine, error) {
	if feed == nil || strat == nil || port == nil || exec == nil || queue == nil {
		return nil, fmt.Errorf("engine requires feed, strategy, portfolio, execution handler, and queue")
	}
	e := &Engine{
		feed:  feed,
		strat: strat,
		port:  port,
		exec:  exec,
		queue: queue,
		log:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives the loop until the feed is exhausted or ctx is cancelled.
// Cancellation stops the outer phase; the inner phase always finishes
// draining before the loop checks ctx again, so no event is dropped
// mid-cascade.
func (e *Engine) Run(ctx context.Context) error {
	iterations := 0
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Int("iterations", iterations).Msg("run cancelled")
			return ctx.Err()
		default:
		}

		if !e.feed.Advance() {
			break
		}
		iterations++
		for _, sym := range e.feed.Symbols() {
			metrics.BarsTotal.WithLabelValues(sym).Inc()
		}

		e.queue.Publish(event.Market{})
		for {
			ev, ok := e.queue.Pop()
			if !ok {
				break
			}
			if err := e.dispatch(ev); err != nil {
				return fmt.Errorf("iteration %d: %w", iterations, err)
			}
		}

		e.checkOutstanding()

		if e.pace > 0 {
			select {
			case <-time.After(e.pace):
			case <-ctx.Done():
				e.log.Info().Int("iterations", iterations).Msg("run cancelled")
				return ctx.Err()
			}
		}
	}

	e.log.Info().Int("iterations", iterations).Msg("feed exhausted, run complete")
	return nil
}

func (e *Engine) dispatch(ev event.Event) error {
	metrics.EventsTotal.WithLabelValues(string(ev.Type())).Inc()

	switch v := ev.(type) {
	case event.Market:
		for _, sig := range e.strat.OnMarket() {
			e.queue.Publish(sig)
		}
		if err := e.port.UpdateTimeIndex(); err != nil {
			return fmt.Errorf("time-index update: %w", err)
		}
		if ml, ok := e.exec.(execution.MarketListener); ok {
			ml.OnMarket()
		}
	case event.Signal:
		if err := e.port.OnSignal(v); err != nil {
			return fmt.Errorf("signal update: %w", err)
		}
	case event.Order:
		if err := e.exec.Execute(v); err != nil {
			// Broker-side failures are non-fatal: the order stays
			// outstanding and the ledger is untouched until a fill arrives.
			e.log.Warn().Err(err).Str("symbol", v.Symbol).Msg("execution handler error")
		}
	case event.Fill:
		if err := e.port.OnFill(v); err != nil {
			return fmt.Errorf("fill update: %w", err)
		}
	default:
		return fmt.Errorf("unknown event type %T", ev)
	}
	return nil
}

type outstandingReporter interface {
	Outstanding() int
}

func (e *Engine) checkOutstanding() {
	rep, ok := e.exec.(outstandingReporter)
	if !ok {
		return
	}
	if rep.Outstanding() == 0 {
		e.pendingSince = time.Time{}
		return
	}
	if e.pendingSince.IsZero() {
		e.pendingSince = time.Now()
		return
	}
	if e.orderTimeout > 0 && time.Since(e.pendingSince) > e.orderTimeout {
		e.log.Warn().
			Int("outstanding", rep.Outstanding()).
			Dur("age", time.Since(e.pendingSince)).
			Msg("orders unfilled past timeout")
	}
}
