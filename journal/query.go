package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeplan/ledger"
	"github.com/rustyeddy/tradeplan/pkg/id"
	"github.com/rustyeddy/tradeplan/result"
	"github.com/rustyeddy/tradeplan/sim"
)

// RunSummary is one row of backtest_runs.
type RunSummary struct {
	RunID       string
	Created     time.Time
	Symbol      string
	Start       time.Time
	End         time.Time
	NetReturn   float64
	MaxDrawdown float64
	Trades      int
	WinRate     float64
	DataSource  string
}

const tradeCols = `trade_id, run_id, symbol, quantity, entry_price, exit_price, open_time, close_time, realized_pl, reason`

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+tradeCols+` FROM trades WHERE trade_id = ?`, tradeID)
	if err != nil {
		return TradeRecord{}, err
	}
	recs, err := scanTrades(rows)
	if err != nil {
		return TradeRecord{}, err
	}
	if len(recs) == 0 {
		return TradeRecord{}, fmt.Errorf("%w: trade %q", ErrNotFound, tradeID)
	}
	return recs[0], nil
}

// ListTradesByRunID returns a run's trades in the order they were made.
func (j *SQLiteJournal) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeCols+`
		FROM trades
		WHERE run_id = ?
		ORDER BY trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeCols+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// ListEquityByRunID returns a run's equity curve.
func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]sim.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, value
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.EquityPoint
	for rows.Next() {
		var p sim.EquityPoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			return nil, err
		}
		p.Time = p.Time.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRuns returns stored runs for symbol, oldest first. An empty symbol
// lists every run.
func (j *SQLiteJournal) ListRuns(ctx context.Context, symbol string) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, symbol, start_time, end_time, net_return, max_drawdown, trades, win_rate, data_source
		FROM backtest_runs
		WHERE ? = '' OR symbol = ?
		ORDER BY run_id ASC`, symbol, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.RunID,
			&s.Symbol,
			&s.Start,
			&s.End,
			&s.NetReturn,
			&s.MaxDrawdown,
			&s.Trades,
			&s.WinRate,
			&s.DataSource,
		); err != nil {
			return nil, err
		}
		s.Start, s.End = s.Start.UTC(), s.End.UTC()
		if ts, err := id.Time(s.RunID); err == nil {
			s.Created = ts
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetResult rebuilds a stored result.
func (j *SQLiteJournal) GetResult(ctx context.Context, runID string) (result.BacktestResult, error) {
	var (
		r            result.BacktestResult
		strategyJSON string
		inputsJSON   string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, symbol, start_time, end_time, net_return, max_drawdown,
		       trades, wins, losses, win_rate, gross_profit, gross_loss, profit_factor,
		       capital, data_source, strategy, agent_inputs
		FROM backtest_runs
		WHERE run_id = ?`, runID).Scan(
		&r.RunID,
		&r.Symbol,
		&r.DateRange.Start,
		&r.DateRange.End,
		&r.NetReturn,
		&r.MaxDrawdown,
		&r.Stats.Trades,
		&r.Stats.Wins,
		&r.Stats.Losses,
		&r.Stats.WinRate,
		&r.Stats.GrossProfit,
		&r.Stats.GrossLoss,
		&r.Stats.ProfitFactor,
		&r.Capital,
		&r.DataSource,
		&strategyJSON,
		&inputsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return result.BacktestResult{}, fmt.Errorf("%w: run %q", ErrNotFound, runID)
	}
	if err != nil {
		return result.BacktestResult{}, err
	}
	r.DateRange.Start, r.DateRange.End = r.DateRange.Start.UTC(), r.DateRange.End.UTC()

	if err := json.Unmarshal([]byte(strategyJSON), &r.StrategyApplied); err != nil {
		return result.BacktestResult{}, fmt.Errorf("run %s strategy: %w", runID, err)
	}
	if err := json.Unmarshal([]byte(inputsJSON), &r.AgentInputs); err != nil {
		return result.BacktestResult{}, fmt.Errorf("run %s agent inputs: %w", runID, err)
	}

	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return result.BacktestResult{}, err
	}
	r.TradeLog = make([]ledger.TradeRow, len(trades))
	for i, t := range trades {
		r.TradeLog[i] = ledger.TradeRow{
			EntryTime:  t.OpenTime,
			EntryPrice: t.EntryPrice,
			ExitTime:   t.CloseTime,
			ExitPrice:  t.ExitPrice,
			PnL:        t.RealizedPL,
			Quantity:   t.Quantity,
			Reason:     t.Reason,
		}
	}

	if r.EquityCurve, err = j.ListEquityByRunID(ctx, runID); err != nil {
		return result.BacktestResult{}, err
	}
	return r, nil
}

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.Symbol,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.OpenTime, rec.CloseTime = rec.OpenTime.UTC(), rec.CloseTime.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
