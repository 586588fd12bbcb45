package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/tradeplan/result"
)

var (
	tradesHeader = []string{"trade_id", "run_id", "symbol", "quantity", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	equityHeader = []string{"run_id", "time", "value"}
)

// CSVJournal appends every recorded run to a trades and an equity CSV.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}
	if err := j.trades.Write(tradesHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.equity.Write(equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.flush(); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordResult(ctx context.Context, r result.BacktestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, t := range TradeRecords(r) {
		err := j.trades.Write([]string{
			t.TradeID,
			t.RunID,
			t.Symbol,
			f(t.Quantity),
			f(t.EntryPrice),
			f(t.ExitPrice),
			t.OpenTime.UTC().Format(time.RFC3339),
			t.CloseTime.UTC().Format(time.RFC3339),
			f(t.RealizedPL),
			t.Reason,
		})
		if err != nil {
			return err
		}
	}

	for _, p := range r.EquityCurve {
		err := j.equity.Write([]string{
			r.RunID,
			p.Time.UTC().Format(time.RFC3339),
			f(p.Value),
		})
		if err != nil {
			return err
		}
	}
	return j.flush()
}

func (j *CSVJournal) flush() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	ferr := j.flush()
	terr := j.tf.Close()
	eerr := j.ef.Close()
	for _, err := range []error{ferr, terr, eerr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV exports r as <dir>/<run_id>_trades.csv and
// <dir>/<run_id>_equity.csv and returns both paths.
func WriteCSV(dir string, r result.BacktestResult) (tradesPath, equityPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	tradesPath = filepath.Join(dir, r.RunID+"_trades.csv")
	equityPath = filepath.Join(dir, r.RunID+"_equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	if err != nil {
		return "", "", err
	}
	if err := j.RecordResult(context.Background(), r); err != nil {
		_ = j.Close()
		return "", "", err
	}
	return tradesPath, equityPath, j.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
