package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('backtest_runs','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["backtest_runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordAndGetResult(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	r := sampleResult(t, "01HV0000000000000000000010")
	require.NoError(t, j.RecordResult(ctx, r))

	got, err := j.GetResult(ctx, r.RunID)
	require.NoError(t, err)

	assert.Equal(t, r.Symbol, got.Symbol)
	assert.True(t, got.DateRange.Start.Equal(r.DateRange.Start))
	assert.True(t, got.DateRange.End.Equal(r.DateRange.End))
	assert.InDelta(t, r.NetReturn, got.NetReturn, 1e-12)
	assert.InDelta(t, r.MaxDrawdown, got.MaxDrawdown, 1e-12)
	assert.Equal(t, r.Stats, got.Stats)
	assert.Equal(t, r.TradeLog, got.TradeLog)
	assert.Equal(t, r.EquityCurve, got.EquityCurve)
	assert.Equal(t, r.AgentInputs, got.AgentInputs)
	assert.Equal(t, r.DataSource, got.DataSource)
	assert.Equal(t, r.StrategyApplied.Symbol, got.StrategyApplied.Symbol)
}

func TestSQLiteRecordIsAtomic(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	r := sampleResult(t, "01HV0000000000000000000011")
	require.NoError(t, j.RecordResult(ctx, r))

	// same run id again fails on the first insert and adds nothing
	assert.Error(t, j.RecordResult(ctx, r))

	trades, err := j.ListTradesByRunID(ctx, r.RunID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
	curve, err := j.ListEquityByRunID(ctx, r.RunID)
	require.NoError(t, err)
	assert.Len(t, curve, 4)
}

func TestGetResultNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetResult(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
