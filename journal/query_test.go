package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	r := sampleResult(t, "01HV0000000000000000000020")
	require.NoError(t, j.RecordResult(ctx, r))

	got, err := j.GetTrade(ctx, r.RunID+"-002")
	require.NoError(t, err)
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, "TSLA", got.Symbol)
	assert.InDelta(t, 40.0, got.Quantity, 1e-9)
	assert.InDelta(t, 108.0, got.EntryPrice, 1e-9)
	assert.InDelta(t, 103.0, got.ExitPrice, 1e-9)
	assert.True(t, got.OpenTime.Equal(day(2)))
	assert.True(t, got.CloseTime.Equal(day(3)))
	assert.InDelta(t, -200.0, got.RealizedPL, 1e-9)

	_, err = j.GetTrade(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.RecordResult(ctx, sampleResult(t, "01HV0000000000000000000021")))

	// [start, end) so the day(3) close is excluded
	trades, err := j.ListTradesClosedBetween(ctx, day(0), day(3))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].CloseTime.Equal(day(1)))

	trades, err = j.ListTradesClosedBetween(ctx, day(0), day(4))
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	a := sampleResult(t, "01HV0000000000000000000030")
	b := sampleResult(t, "01HV0000000000000000000031")
	b.Symbol = "AAPL"
	require.NoError(t, j.RecordResult(ctx, a))
	require.NoError(t, j.RecordResult(ctx, b))

	all, err := j.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.RunID, all[0].RunID)
	assert.False(t, all[0].Created.IsZero())

	tsla, err := j.ListRuns(ctx, "TSLA")
	require.NoError(t, err)
	require.Len(t, tsla, 1)
	assert.Equal(t, 2, tsla[0].Trades)
	assert.Equal(t, "csv:testdata", tsla[0].DataSource)
}
