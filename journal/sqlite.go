package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradeplan/result"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

// RecordResult writes the run, its trades and its equity curve in one
// transaction.
func (j *SQLiteJournal) RecordResult(ctx context.Context, r result.BacktestResult) error {
	strategyJSON, err := json.Marshal(r.StrategyApplied)
	if err != nil {
		return err
	}
	inputsJSON, err := json.Marshal(r.AgentInputs)
	if err != nil {
		return err
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
		(run_id, symbol, start_time, end_time, net_return, max_drawdown,
		 trades, wins, losses, win_rate, gross_profit, gross_loss, profit_factor,
		 capital, data_source, strategy, agent_inputs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Symbol, r.DateRange.Start.UTC(), r.DateRange.End.UTC(), r.NetReturn, r.MaxDrawdown,
		r.Stats.Trades, r.Stats.Wins, r.Stats.Losses, r.Stats.WinRate,
		r.Stats.GrossProfit, r.Stats.GrossLoss, r.Stats.ProfitFactor,
		r.Capital, r.DataSource, string(strategyJSON), string(inputsJSON),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}

	for _, t := range TradeRecords(r) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades
			(trade_id, run_id, symbol, quantity, entry_price, exit_price, open_time, close_time, realized_pl, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.TradeID, t.RunID, t.Symbol, t.Quantity, t.EntryPrice,
			t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Reason,
		)
		if err != nil {
			return fmt.Errorf("record trade %s: %w", t.TradeID, err)
		}
	}

	for i, p := range r.EquityCurve {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equity (run_id, seq, time, value)
			VALUES (?, ?, ?, ?)`,
			r.RunID, i, p.Time.UTC(), p.Value,
		)
		if err != nil {
			return fmt.Errorf("record equity %s: %w", r.RunID, err)
		}
	}

	return tx.Commit()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
