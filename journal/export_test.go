package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirJournals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := sampleResult(t, "01HV0000000000000000000060")

	var j Journal = Multi{CSVDir(filepath.Join(dir, "csv")), OrgDir(filepath.Join(dir, "org"))}
	require.NoError(t, j.RecordResult(context.Background(), r))
	require.NoError(t, j.Close())

	trades := readCSV(t, filepath.Join(dir, "csv", r.RunID+"_trades.csv"))
	assert.Len(t, trades, 3)
	equity := readCSV(t, filepath.Join(dir, "csv", r.RunID+"_equity.csv"))
	assert.Len(t, equity, 5)

	org, err := os.ReadFile(filepath.Join(dir, "org", "TSLA_2024-04-01_"+r.RunID+".org"))
	require.NoError(t, err)
	assert.Contains(t, string(org), "* BACKTEST: TSLA")
	assert.Contains(t, string(org), "*** Trade: TSLA")
}

func TestDirJournalsCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := sampleResult(t, "01HV0000000000000000000061")
	assert.ErrorIs(t, CSVDir(dir).RecordResult(ctx, r), context.Canceled)
	assert.ErrorIs(t, OrgDir(dir).RecordResult(ctx, r), context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
