package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/tradeplan/ledger"
	"github.com/rustyeddy/tradeplan/result"
	"github.com/rustyeddy/tradeplan/sim"
	"github.com/rustyeddy/tradeplan/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

// sampleResult builds a two trade TSLA run over four days.
func sampleResult(t *testing.T, runID string) result.BacktestResult {
	t.Helper()

	events := []sim.TradeEvent{
		{Symbol: "TSLA", Side: sim.Entry, Time: day(0), Price: 100, Quantity: 50},
		{Symbol: "TSLA", Side: sim.Exit, Time: day(1), Price: 110, Quantity: 50, Reason: sim.ReasonTarget},
		{Symbol: "TSLA", Side: sim.Entry, Time: day(2), Price: 108, Quantity: 40},
		{Symbol: "TSLA", Side: sim.Exit, Time: day(3), Price: 103, Quantity: 40, Reason: sim.ReasonEndOfRange},
	}
	curve := []sim.EquityPoint{
		{Time: day(0), Value: 1},
		{Time: day(1), Value: 1.05},
		{Time: day(2), Value: 1.04},
		{Time: day(3), Value: 1.03},
	}
	m, err := ledger.Summarize(events, curve)
	require.NoError(t, err)

	r, err := result.Assemble(result.Input{
		RunID:  runID,
		Symbol: "TSLA",
		Range:  result.DateRange{Start: day(0), End: day(3)},
		Strategy: strategy.Descriptor{
			Symbol:          "TSLA",
			EntryCriteria:   "Breakout above the 20-day high",
			PositionSizing:  "Risk 2% of capital per trade",
			RiskManagement:  "5% stop-loss",
			ExitStrategy:    "Take profit at 10%",
			TradeManagement: "Move stop to break-even after 1R",
			Rationale:       json.RawMessage(`{"technical":"trend up"}`),
		},
		Metrics:     m,
		Curve:       curve,
		AgentInputs: result.Inputs{}.Set("technical", json.RawMessage(`{"rsi":61}`)).Set("news", json.RawMessage(`[]`)),
		DataSource:  "csv:testdata",
		Capital:     10_000,
	})
	require.NoError(t, err)
	return r
}

func TestTradeRecords(t *testing.T) {
	t.Parallel()

	r := sampleResult(t, "01HV0000000000000000000001")
	recs := TradeRecords(r)
	require.Len(t, recs, 2)
	assert.Equal(t, "01HV0000000000000000000001-001", recs[0].TradeID)
	assert.Equal(t, "01HV0000000000000000000001-002", recs[1].TradeID)
	assert.Equal(t, "TSLA", recs[1].Symbol)
	assert.InDelta(t, 500.0, recs[0].RealizedPL, 1e-9)
	assert.InDelta(t, -200.0, recs[1].RealizedPL, 1e-9)
	assert.Equal(t, sim.ReasonTarget, recs[0].Reason)
}

type failingJournal struct{ calls int }

func (f *failingJournal) RecordResult(context.Context, result.BacktestResult) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingJournal) Close() error { return errors.New("close failed") }

func TestMulti(t *testing.T) {
	t.Parallel()

	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)
	bad := &failingJournal{}

	m := Multi{store, bad}
	r := sampleResult(t, "01HV0000000000000000000002")
	assert.Error(t, m.RecordResult(context.Background(), r))
	assert.Equal(t, 1, bad.calls)

	_, err = store.GetResult("TSLA", "2024-04-01")
	assert.NoError(t, err, "journals before the failure still recorded")

	assert.EqualError(t, m.Close(), "close failed")
}
