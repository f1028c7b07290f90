package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSV layout: header row then datetime, open, low, high, close, volume, oi.
const (
	csvTimeLayout     = "2006-01-02 15:04:05"
	csvDateOnlyLayout = "2006-01-02"
	csvColumns        = 7
)

// LoadCSVDir reads <dir>/<SYMBOL>.csv for every requested symbol and returns
// the per-symbol bar series ready for NewHistoric. A missing file or a
// malformed row is a configuration error.
func LoadCSVDir(dir string, symbols []string) (map[string][]Bar, error) {
	records := make(map[string][]Bar, len(symbols))
	for _, sym := range symbols {
		path := filepath.Join(dir, sym+".csv")
		bars, err := loadCSVFile(path, sym)
		if err != nil {
			return nil, fmt.Errorf("load csv for %s: %w", sym, err)
		}
		records[sym] = bars
	}
	return records, nil
}

func loadCSVFile(path, symbol string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = csvColumns
	reader.TrimLeadingSpace = true

	// Skip header.
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []Bar
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar, err := parseCSVRow(row, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars in %s", path)
	}
	return bars, nil
}

func parseCSVRow(row []string, symbol string) (Bar, error) {
	ts, err := time.Parse(csvTimeLayout, row[0])
	if err != nil {
		ts, err = time.Parse(csvDateOnlyLayout, row[0])
		if err != nil {
			return Bar{}, fmt.Errorf("parse datetime %q: %w", row[0], err)
		}
	}

	vals := make([]float64, csvColumns-1)
	for i, raw := range row[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("parse column %d %q: %w", i+1, raw, err)
		}
		vals[i] = v
	}

	return Bar{
		Symbol:       symbol,
		Timestamp:    ts,
		Open:         vals[0],
		Low:          vals[1],
		High:         vals[2],
		Close:        vals[3],
		Volume:       vals[4],
		OpenInterest: vals[5],
	}, nil
}
