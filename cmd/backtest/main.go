package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/FernandoHsu/myBackTester/internal/config"
	"github.com/FernandoHsu/myBackTester/internal/data"
	"github.com/FernandoHsu/myBackTester/internal/engine"
	"github.com/FernandoHsu/myBackTester/internal/event"
	"github.com/FernandoHsu/myBackTester/internal/execution"
	"github.com/FernandoHsu/myBackTester/internal/metrics"
	"github.com/FernandoHsu/myBackTester/internal/performance"
	"github.com/FernandoHsu/myBackTester/internal/portfolio"
	"github.com/FernandoHsu/myBackTester/internal/report"
	"github.com/FernandoHsu/myBackTester/internal/risk"
	"github.com/FernandoHsu/myBackTester/internal/strategy"
	"github.com/FernandoHsu/myBackTester/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed, start, err := buildFeed(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Data.Source).Msg("build feed")
	}

	queue := event.NewQueue(256)

	limits := risk.Limits{
		MaxNotionalPerTrade:  cfg.Risk.MaxNotionalPerTrade,
		MaxPositionPerSymbol: cfg.Risk.MaxPositionPerSymbol,
	}
	port, err := portfolio.New(feed, queue, start, cfg.Portfolio.StartingCash, log,
		portfolio.WithSizer(portfolio.NewNaiveSizer(cfg.Portfolio.SizingUnit)),
		portfolio.WithLimits(limits),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build portfolio")
	}

	strat := strategy.Build(cfg.Strategy.Mode, strategy.Params{
		LookbackBars: cfg.Strategy.Params.LookbackBars,
		Threshold:    cfg.Strategy.Params.Threshold,
	}, feed)
	log.Info().Str("strategy", strat.Name()).Msg("strategy ready")

	var execEvents event.Publisher = queue
	if cfg.Report.FillsPath != "" {
		fills, err := report.NewJSONLRecorder(cfg.Report.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Report.FillsPath).Msg("open fills recorder")
		}
		defer fills.Close()
		execEvents = &fillTee{queue: queue, rec: fills, log: log}
	}

	exec := execution.NewSimulated(feed, execEvents, log,
		execution.WithVenue(cfg.Execution.Venue),
		execution.WithLatency(cfg.Execution.LatencyBars),
		execution.WithCommission(commissionFor(cfg.Execution)),
	)

	var opts []engine.Option
	if cfg.Simulation.PaceMs > 0 {
		opts = append(opts, engine.WithPace(time.Duration(cfg.Simulation.PaceMs)*time.Millisecond))
	}
	if cfg.Simulation.OrderTimeoutMs > 0 {
		opts = append(opts, engine.WithOrderTimeout(time.Duration(cfg.Simulation.OrderTimeoutMs)*time.Millisecond))
	}
	eng, err := engine.New(feed, strat, port, exec, queue, log, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	log.Info().Str("env", cfg.App.Env).Strs("symbols", cfg.Data.Symbols).Msg("run starting")
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("run failed")
	}

	if cfg.Report.HoldingsPath != "" {
		if err := writeHoldings(cfg.Report.HoldingsPath, port); err != nil {
			log.Error().Err(err).Str("path", cfg.Report.HoldingsPath).Msg("write holdings")
		}
	}

	summary, err := port.Summarize(cfg.Portfolio.RiskFree, periodsFor(cfg.Data.Source))
	if err != nil {
		log.Warn().Err(err).Msg("summary unavailable")
		return
	}
	log.Info().
		Float64("total_return", summary.TotalReturn).
		Float64("sharpe", summary.SharpeRatio).
		Float64("max_drawdown", summary.MaxDrawdown).
		Int("drawdown_duration", summary.DrawdownDuration).
		Msg("run summary")
}

func defaultConfigPath() string {
	if p := os.Getenv("BACKTEST_CONFIG"); p != "" {
		return p
	}
	return "internal/config/config.yaml"
}

// buildFeed returns the configured bar feed along with the timestamp the
// ledger should open at.
func buildFeed(ctx context.Context, cfg *config.Config, log zerolog.Logger) (data.Feed, time.Time, error) {
	switch cfg.Data.Source {
	case "csv":
		records, err := data.LoadCSVDir(cfg.Data.CSVDir, cfg.Data.Symbols)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("load csv bars: %w", err)
		}
		feed, err := data.NewHistoric(records, log)
		if err != nil {
			return nil, time.Time{}, err
		}
		return feed, earliestStart(records), nil
	case "sqlite":
		store, err := data.OpenBarStore(cfg.Data.SQLitePath)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("open bar store: %w", err)
		}
		records, err := store.LoadAll(cfg.Data.Symbols)
		store.Close()
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("load bars: %w", err)
		}
		feed, err := data.NewHistoric(records, log)
		if err != nil {
			return nil, time.Time{}, err
		}
		return feed, earliestStart(records), nil
	case "live":
		bars := data.StreamBars(ctx, cfg.Data.WebsocketURL, log)
		feed, err := data.NewLive(bars, cfg.Data.Symbols, log)
		if err != nil {
			return nil, time.Time{}, err
		}
		return feed, time.Now().UTC(), nil
	default:
		return nil, time.Time{}, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

func earliestStart(records map[string][]data.Bar) time.Time {
	var start time.Time
	for _, bars := range records {
		if len(bars) == 0 {
			continue
		}
		if start.IsZero() || bars[0].Timestamp.Before(start) {
			start = bars[0].Timestamp
		}
	}
	return start
}

func commissionFor(cfg config.Execution) execution.CommissionPolicy {
	switch cfg.Commission {
	case "fixed":
		return execution.FixedCommission{Fee: cfg.FixedFee}
	case "none":
		return execution.FixedCommission{}
	default:
		return execution.IBCommission{}
	}
}

func periodsFor(source string) performance.Periods {
	if source == "live" {
		return performance.Minute
	}
	return performance.Daily
}

func writeHoldings(path string, port *portfolio.Portfolio) error {
	rec, err := report.NewJSONLRecorder(path)
	if err != nil {
		return err
	}
	defer rec.Close()
	for _, row := range port.Holdings() {
		if err := rec.Record(row); err != nil {
			return err
		}
	}
	return rec.Close()
}

// fillTee forwards every event to the queue and additionally persists fills
// for post-run analysis.
type fillTee struct {
	queue *event.Queue
	rec   *report.JSONLRecorder
	log   zerolog.Logger
}

func (t *fillTee) Publish(ev event.Event) {
	if fill, ok := ev.(event.Fill); ok {
		if err := t.rec.Record(fill); err != nil {
			t.log.Warn().Err(err).Str("order_id", fill.OrderID).Msg("recording fill failed")
		}
	}
	t.queue.Publish(ev)
}
