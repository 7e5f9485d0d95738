package tradelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/portfolio"
)

// Header is the first row of every trade log
var Header = []string{"ts", "run_id", "event", "ticker", "shares", "price", "cash", "reason"}

// Entry is one row of the log
type Entry struct {
	RunID string
	portfolio.Event
}

// Log appends portfolio events to a CSV file. Safe for concurrent use.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog opens path for appending, writing the header if the file is new
func NewLog(path string) (*Log, error) {
	if path == "" {
		return nil, errors.New("empty trade log path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trade log directory: %w", err)
		}
	}

	// ensure file exists with header
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(abs)
		if err != nil {
			return nil, err
		}
		w := csv.NewWriter(f)
		_ = w.Write(Header)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return &Log{path: abs}, nil
}

// Path returns the absolute path of the log file
func (l *Log) Path() string {
	return l.path
}

// Record appends e without a run ID
func (l *Log) Record(e portfolio.Event) error {
	return l.RecordRun("", e)
}

// RecordRun appends e tagged with runID
func (l *Log) RecordRun(runID string, e portfolio.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(formatRow(Entry{RunID: runID, Event: e})); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Read parses a trade log written by Log
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads log rows from r. The header row is optional.
func Parse(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read trade log: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		if i == 0 && row[0] == Header[0] {
			continue
		}
		entry, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func formatRow(e Entry) []string {
	return []string{
		e.Time.Format(time.RFC3339),
		e.RunID,
		string(e.Side),
		e.Ticker,
		strconv.FormatInt(e.Shares, 10),
		e.Price.String(),
		e.Cash.StringFixed(portfolio.CashPlaces),
		e.Reason,
	}
}

func parseRow(rec []string) (Entry, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return Entry{}, fmt.Errorf("bad timestamp %q: %w", rec[0], err)
	}
	side := portfolio.Side(rec[2])
	if side != portfolio.SideBuy && side != portfolio.SideSell {
		return Entry{}, fmt.Errorf("unknown event %q", rec[2])
	}
	shares, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad shares %q: %w", rec[4], err)
	}
	price, err := decimal.NewFromString(rec[5])
	if err != nil {
		return Entry{}, fmt.Errorf("bad price %q: %w", rec[5], err)
	}
	cash, err := decimal.NewFromString(rec[6])
	if err != nil {
		return Entry{}, fmt.Errorf("bad cash %q: %w", rec[6], err)
	}

	return Entry{
		RunID: rec[1],
		Event: portfolio.Event{
			Time:   ts,
			Side:   side,
			Ticker: rec[3],
			Shares: shares,
			Price:  price,
			Cash:   cash,
			Reason: rec[7],
		},
	}, nil
}
