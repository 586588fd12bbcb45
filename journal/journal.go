// Package journal persists backtest results: JSON files keyed by
// (symbol, date), a sqlite run journal, CSV exports and Org reports.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeplan/result"
)

var ErrNotFound = errors.New("not found")

// Journal records finished backtest results.
type Journal interface {
	RecordResult(ctx context.Context, r result.BacktestResult) error
	Close() error
}

// TradeRecord is one trade of a stored run.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// TradeRecords flattens the trade log of r. Trade ids are the run id
// with a sequence suffix.
func TradeRecords(r result.BacktestResult) []TradeRecord {
	out := make([]TradeRecord, len(r.TradeLog))
	for i, row := range r.TradeLog {
		out[i] = TradeRecord{
			TradeID:    fmt.Sprintf("%s-%03d", r.RunID, i+1),
			RunID:      r.RunID,
			Symbol:     r.Symbol,
			Quantity:   row.Quantity,
			EntryPrice: row.EntryPrice,
			ExitPrice:  row.ExitPrice,
			OpenTime:   row.EntryTime,
			CloseTime:  row.ExitTime,
			RealizedPL: row.PnL,
			Reason:     row.Reason,
		}
	}
	return out
}

// Multi fans results out to several journals. The first error stops
// the fan out.
type Multi []Journal

func (m Multi) RecordResult(ctx context.Context, r result.BacktestResult) error {
	for _, j := range m {
		if err := j.RecordResult(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
