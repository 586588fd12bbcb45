package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreSaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	path, err := s.Save("strategy", "TSLA", "2024-04-01", map[string]string{"entry_criteria": "buy"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TSLA", "2024-04-01_strategy.json"), path)

	var got map[string]string
	require.NoError(t, s.Load("strategy", "TSLA", "2024-04-01", &got))
	assert.Equal(t, "buy", got["entry_criteria"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"entry_criteria\"", "indented")

	err = s.Load("strategy", "TSLA", "2024-04-02", &got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONStoreRejectsBadKeys(t *testing.T) {
	t.Parallel()

	s, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	for _, sym := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Save("backtest", sym, "2024-04-01", 1)
		assert.ErrorIs(t, err, ErrBadKey, sym)
	}
}

func TestJSONStoreResult(t *testing.T) {
	t.Parallel()

	s, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	r := sampleResult(t, "01HV0000000000000000000003")
	require.NoError(t, s.RecordResult(context.Background(), r))

	got, err := s.GetResult("TSLA", "2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, r.TradeLog, got.TradeLog)
	assert.Equal(t, r.EquityCurve, got.EquityCurve)
	assert.Equal(t, r.AgentInputs, got.AgentInputs)
	assert.Equal(t, r.StrategyApplied.EntryCriteria, got.StrategyApplied.EntryCriteria)
	assert.JSONEq(t, string(r.StrategyApplied.Rationale), string(got.StrategyApplied.Rationale))
	assert.InDelta(t, r.NetReturn, got.NetReturn, 1e-12)
}
