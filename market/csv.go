package market

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Source supplies an ordered bar series for a symbol and date range.
type Source interface {
	Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// CSVSource reads bars from <Dir>/<SYMBOL>.csv.
type CSVSource struct {
	Dir string
}

func (s CSVSource) Bars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no data file for %s", ErrInsufficientData, symbol)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s in range", ErrInsufficientData, symbol)
	}
	return bars, nil
}

// ReadCSV reads OHLCV rows:
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339, RFC3339Nano or YYYY-MM-DD.
//
// Rows outside [from, to] are dropped when the bounds are non-zero.
// A single header row ("time,...") is allowed and empty rows are skipped.
// Rows are returned in file order; ordering is checked by CheckBars.
func ReadCSV(r io.Reader, from, to time.Time) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out      []Bar
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") ||
				strings.EqualFold(strings.TrimSpace(row[0]), "date") {
				continue
			}
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !inRange(b.Time, from, to) {
			continue
		}
		out = append(out, b)
	}
}

func parseBarRow(row []string) (Bar, error) {
	if len(row) < 5 {
		return Bar{}, fmt.Errorf("need at least 5 columns (time,open,high,low,close), got %d", len(row))
	}

	t, err := ParseTime(row[0])
	if err != nil {
		return Bar{}, err
	}

	var vals [5]float64
	n := 5
	if len(row) < 6 {
		n = 4
	}
	for i := 0; i < n; i++ {
		s := strings.TrimSpace(row[i+1])
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad number %q: %w", s, err)
		}
		vals[i] = v
	}

	b := Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	// Feeds that only carry open/close still get a usable range.
	if b.High == 0 {
		b.High = max(b.Open, b.Close)
	}
	if b.Low == 0 {
		b.Low = min(b.Open, b.Close)
	}
	return b, nil
}

// ParseTime accepts RFC3339, RFC3339Nano or a plain YYYY-MM-DD date (UTC).
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return t, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
