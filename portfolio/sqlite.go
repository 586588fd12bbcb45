package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy_ref TEXT NOT NULL,
	status TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	quantity REAL NOT NULL,
	exit_time DATETIME,
	exit_price REAL,
	realized_pnl REAL
);

CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol, entry_time);
CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open ON positions(symbol, strategy_ref) WHERE status = 'open';
`

// SQLiteStore keeps positions in a sqlite database. The partial unique
// index enforces one open position per (symbol, strategy_ref).
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("positions schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const positionCols = `id, symbol, strategy_ref, status, entry_time, entry_price, quantity, exit_time, exit_price, realized_pnl`

func (s *SQLiteStore) Load(ctx context.Context, symbol string) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+positionCols+`
		FROM positions
		WHERE symbol = ?
		ORDER BY entry_time ASC, id ASC`, symbol)
	if err != nil {
		return nil, err
	}
	return scanPositions(rows)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+positionCols+`
		FROM positions
		ORDER BY entry_time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return scanPositions(rows)
}

func (s *SQLiteStore) Save(ctx context.Context, positions ...Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (`+positionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			exit_time = excluded.exit_time,
			exit_price = excluded.exit_price,
			realized_pnl = excluded.realized_pnl`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range positions {
		var (
			exitTime  sql.NullTime
			exitPrice sql.NullFloat64
			realized  sql.NullFloat64
		)
		if p.Status == StatusClosed {
			exitTime = sql.NullTime{Time: p.ExitTime.UTC(), Valid: true}
			exitPrice = sql.NullFloat64{Float64: p.ExitPrice, Valid: true}
			realized = sql.NullFloat64{Float64: p.RealizedPnL, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Symbol, p.StrategyRef, string(p.Status),
			p.EntryTime.UTC(), p.EntryPrice, p.Quantity,
			exitTime, exitPrice, realized,
		); err != nil {
			return fmt.Errorf("save position %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanPositions(rows *sql.Rows) ([]Position, error) {
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var (
			p         Position
			status    string
			entryTime time.Time
			exitTime  sql.NullTime
			exitPrice sql.NullFloat64
			realized  sql.NullFloat64
		)
		if err := rows.Scan(
			&p.ID,
			&p.Symbol,
			&p.StrategyRef,
			&status,
			&entryTime,
			&p.EntryPrice,
			&p.Quantity,
			&exitTime,
			&exitPrice,
			&realized,
		); err != nil {
			return nil, err
		}
		p.Status = Status(status)
		p.EntryTime = entryTime.UTC()
		if exitTime.Valid {
			p.ExitTime = exitTime.Time.UTC()
		}
		p.ExitPrice = exitPrice.Float64
		p.RealizedPnL = realized.Float64
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
