// Package config exposes strongly typed application configuration structs
// loaded from YAML and validated before the run starts. Configuration
// errors fail fast here; nothing downstream re-checks these fields.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data describes where bars come from and which symbols to track.
type Data struct {
	Source       string   `yaml:"source" validate:"oneof=csv sqlite live"`
	CSVDir       string   `yaml:"csv_dir"`
	SQLitePath   string   `yaml:"sqlite_path"`
	WebsocketURL string   `yaml:"websocket_url"`
	Symbols      []string `yaml:"symbols" validate:"min=1,dive,required"`
}

// Portfolio holds the ledger's starting state and policy knobs.
type Portfolio struct {
	StartingCash float64 `yaml:"starting_cash" validate:"gt=0"`
	SizingUnit   int     `yaml:"sizing_unit" validate:"gt=0"`
	RiskFree     float64 `yaml:"risk_free" validate:"gte=0,lte=1"`
}

// Risk encodes pre-trade guard-rails; zero means unlimited.
type Risk struct {
	MaxNotionalPerTrade  float64 `yaml:"max_notional_per_trade" validate:"gte=0"`
	MaxPositionPerSymbol int     `yaml:"max_position_per_symbol" validate:"gte=0"`
}

// Execution tunes the simulated gateway.
type Execution struct {
	Venue       string  `yaml:"venue"`
	LatencyBars int     `yaml:"latency_bars" validate:"gte=0"`
	Commission  string  `yaml:"commission" validate:"oneof=ib fixed none"`
	FixedFee    float64 `yaml:"fixed_fee" validate:"gte=0"`
}

// StrategyParams groups tunable knobs for a strategy implementation.
type StrategyParams struct {
	LookbackBars int     `yaml:"lookback_bars"`
	Threshold    float64 `yaml:"threshold"`
}

// Strategy specifies which strategy is active along with its parameters.
type Strategy struct {
	Mode   string         `yaml:"mode"`
	Params StrategyParams `yaml:"params"`
}

// Simulation controls the dispatch loop's pacing and timeout knobs.
type Simulation struct {
	PaceMs         int `yaml:"pace_ms" validate:"gte=0"`
	OrderTimeoutMs int `yaml:"order_timeout_ms" validate:"gte=0"`
}

// Report names the output artifacts of a run; empty paths disable them.
type Report struct {
	HoldingsPath string `yaml:"holdings_path"`
	FillsPath    string `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Data       Data       `yaml:"data"`
	Portfolio  Portfolio  `yaml:"portfolio"`
	Risk       Risk       `yaml:"risk"`
	Execution  Execution  `yaml:"execution"`
	Strategy   Strategy   `yaml:"strategy"`
	Simulation Simulation `yaml:"simulation"`
	Report     Report     `yaml:"report"`
}

// Load reads a YAML file, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := config.checkSource(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Data.Source == "" {
		c.Data.Source = "csv"
	}
	if c.Portfolio.SizingUnit == 0 {
		c.Portfolio.SizingUnit = 100
	}
	if c.Execution.Commission == "" {
		c.Execution.Commission = "ib"
	}
	if c.Execution.Venue == "" {
		c.Execution.Venue = "SIM"
	}
}

// checkSource enforces the source-specific required fields that tag-level
// validation cannot express.
func (c *Config) checkSource() error {
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("csv source requires data.csv_dir")
		}
	case "sqlite":
		if c.Data.SQLitePath == "" {
			return fmt.Errorf("sqlite source requires data.sqlite_path")
		}
	case "live":
		if c.Data.WebsocketURL == "" {
			return fmt.Errorf("live source requires data.websocket_url")
		}
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
