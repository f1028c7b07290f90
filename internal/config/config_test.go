package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "backtester-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Data.Source != "csv" || cfg.Data.CSVDir != "./testdata/bars" {
		t.Fatalf("unexpected data source config: %+v", cfg.Data)
	}
	if len(cfg.Data.Symbols) != 2 || cfg.Data.Symbols[0] != "AAPL" {
		t.Fatalf("unexpected symbols: %+v", cfg.Data.Symbols)
	}
	if cfg.Portfolio.StartingCash != 100000 || cfg.Portfolio.SizingUnit != 100 {
		t.Fatalf("unexpected portfolio config: %+v", cfg.Portfolio)
	}
	if cfg.Risk.MaxNotionalPerTrade != 50000 || cfg.Risk.MaxPositionPerSymbol != 500 {
		t.Fatalf("unexpected risk config: %+v", cfg.Risk)
	}
	if cfg.Execution.Commission != "fixed" || cfg.Execution.LatencyBars != 1 {
		t.Fatalf("unexpected execution config: %+v", cfg.Execution)
	}
	if cfg.Strategy.Mode != "momentum" || cfg.Strategy.Params.LookbackBars != 5 {
		t.Fatalf("unexpected strategy config: %+v", cfg.Strategy)
	}
	if cfg.Simulation.OrderTimeoutMs != 5000 {
		t.Fatalf("unexpected simulation config: %+v", cfg.Simulation)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  csv_dir: ./bars
  symbols: [AAPL]
portfolio:
  starting_cash: 1000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("expected info default, got %s", cfg.App.LogLevel)
	}
	if cfg.Data.Source != "csv" {
		t.Fatalf("expected csv default source, got %s", cfg.Data.Source)
	}
	if cfg.Portfolio.SizingUnit != 100 {
		t.Fatalf("expected default sizing unit, got %d", cfg.Portfolio.SizingUnit)
	}
	if cfg.Execution.Commission != "ib" {
		t.Fatalf("expected ib default commission, got %s", cfg.Execution.Commission)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no symbols", `
data:
  csv_dir: ./bars
  symbols: []
portfolio:
  starting_cash: 1000
`},
		{"zero cash", `
data:
  csv_dir: ./bars
  symbols: [AAPL]
portfolio:
  starting_cash: 0
`},
		{"risk free out of range", `
data:
  csv_dir: ./bars
  symbols: [AAPL]
portfolio:
  starting_cash: 1000
  risk_free: 1.5
`},
		{"bad source", `
data:
  source: ftp
  symbols: [AAPL]
portfolio:
  starting_cash: 1000
`},
		{"csv without dir", `
data:
  source: csv
  symbols: [AAPL]
portfolio:
  starting_cash: 1000
`},
		{"live without url", `
data:
  source: live
  symbols: [AAPL]
portfolio:
  starting_cash: 1000
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if again.App.Name != cfg.App.Name || again.Portfolio.StartingCash != cfg.Portfolio.StartingCash {
		t.Fatalf("round trip mismatch: %+v vs %+v", again, cfg)
	}

	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
