package ledger

import (
	"testing"
	"time"

	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/sim"
	"github.com/rustyeddy/tradeplan/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func curve(vals ...float64) []sim.EquityPoint {
	out := make([]sim.EquityPoint, len(vals))
	for i, v := range vals {
		out[i] = sim.EquityPoint{Time: day(i), Value: v}
	}
	return out
}

func entry(i int, px, qty float64) sim.TradeEvent {
	return sim.TradeEvent{Symbol: "TSLA", Side: sim.Entry, Time: day(i), Price: px, Quantity: qty}
}

func exit(i int, px, qty float64) sim.TradeEvent {
	return sim.TradeEvent{Symbol: "TSLA", Side: sim.Exit, Time: day(i), Price: px, Quantity: qty, Reason: sim.ReasonEndOfRange}
}

func TestSummarizeThreeBarScenario(t *testing.T) {
	t.Parallel()

	m, err := Summarize(
		[]sim.TradeEvent{entry(0, 100, 100), exit(2, 105, 100)},
		curve(1.0, 1.1, 1.05),
	)
	require.NoError(t, err)

	require.Len(t, m.TradeLog, 1)
	row := m.TradeLog[0]
	assert.Equal(t, day(0), row.EntryTime)
	assert.Equal(t, day(2), row.ExitTime)
	assert.InDelta(t, 500.0, row.PnL, 1e-9)

	assert.InDelta(t, 0.05, m.NetReturn, 1e-9)
	assert.InDelta(t, 0.05/1.1, m.MaxDrawdown, 1e-9)
	assert.Equal(t, 1, m.Trades)
	assert.Equal(t, 1, m.Wins)
	assert.Equal(t, 1.0, m.WinRate)
	assert.Equal(t, float64(MaxProfitFactor), m.ProfitFactor, "no losing trade")
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	m, err := Summarize(nil, curve(1, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, m.TradeLog)
	assert.NotNil(t, m.TradeLog)
	assert.Zero(t, m.NetReturn)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.ProfitFactor)

	m, err = Summarize(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, m.NetReturn)
}

func TestProfitFactorOnlyLosses(t *testing.T) {
	t.Parallel()

	m, err := Summarize([]sim.TradeEvent{entry(0, 10, 10), exit(1, 9, 10)}, curve(1, 0.99))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Losses)
	assert.Zero(t, m.ProfitFactor)
}

func TestSummarizeStats(t *testing.T) {
	t.Parallel()

	events := []sim.TradeEvent{
		entry(0, 10, 10), exit(1, 12, 10), // +20
		entry(2, 12, 10), exit(3, 11, 10), // -10
		entry(4, 11, 10), exit(5, 14, 10), // +30
	}
	m, err := Summarize(events, curve(1, 1.02, 1.02, 1.01, 1.01, 1.04))
	require.NoError(t, err)

	assert.Equal(t, 3, m.Trades)
	assert.Equal(t, 2, m.Wins)
	assert.Equal(t, 1, m.Losses)
	assert.InDelta(t, 2.0/3, m.WinRate, 1e-9)
	assert.InDelta(t, 50.0, m.GrossProfit, 1e-9)
	assert.InDelta(t, 10.0, m.GrossLoss, 1e-9)
	assert.InDelta(t, 5.0, m.ProfitFactor, 1e-9)
}

func TestSummarizePairingErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []sim.TradeEvent
		err    error
	}{
		{
			name:   "exit first",
			events: []sim.TradeEvent{exit(1, 10, 1)},
			err:    ErrUnmatchedExit,
		},
		{
			name:   "double exit",
			events: []sim.TradeEvent{entry(0, 10, 1), exit(1, 11, 1), exit(2, 12, 1)},
			err:    ErrUnmatchedExit,
		},
		{
			name:   "quantity mismatch",
			events: []sim.TradeEvent{entry(0, 10, 1), exit(1, 11, 2)},
			err:    ErrUnmatchedExit,
		},
		{
			name:   "exit before entry",
			events: []sim.TradeEvent{entry(2, 10, 1), exit(1, 11, 1)},
			err:    ErrUnmatchedExit,
		},
		{
			name:   "double entry",
			events: []sim.TradeEvent{entry(0, 10, 1), entry(1, 11, 1)},
			err:    ErrUnmatchedEntry,
		},
		{
			name:   "dangling entry",
			events: []sim.TradeEvent{entry(0, 10, 1)},
			err:    ErrUnmatchedEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.events, curve(1, 1, 1))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMaxDrawdownBounds(t *testing.T) {
	t.Parallel()

	assert.Zero(t, MaxDrawdown(curve(1, 1.1, 1.2, 1.3)))
	assert.InDelta(t, 0.5, MaxDrawdown(curve(1, 2, 1, 1.5)), 1e-9)
	assert.InDelta(t, 1.0, MaxDrawdown(curve(1, 0)), 1e-9)

	dd := MaxDrawdown(curve(1, 0.7, 1.4, 0.2, 0.9))
	assert.GreaterOrEqual(t, dd, 0.0)
	assert.LessOrEqual(t, dd, 1.0)
}

func TestTradeLogRoundTrip(t *testing.T) {
	t.Parallel()

	rules := strategy.Rules{
		Entry:  strategy.EntryRule{Kind: strategy.EntryBreakout, Lookback: 1},
		Sizing: strategy.SizingRule{Kind: strategy.SizingFixedFraction, Fraction: 0.5},
		Stop:   strategy.StopRule{Kind: strategy.StopPercent, Pct: 0.03},
	}
	var bars []market.Bar
	closes := []float64{10, 10.5, 10.2, 10.8, 10.1, 10.9, 11.3, 10.6, 11.8, 12.0}
	for i, c := range closes {
		open := c - 0.1
		bars = append(bars, market.Bar{Time: day(i), Open: open, High: c + 0.2, Low: open - 0.3, Close: c})
	}

	run, err := sim.SimulateRules("TSLA", bars, rules, sim.Options{})
	require.NoError(t, err)
	first, err := Summarize(run.Events, run.Curve)
	require.NoError(t, err)
	require.NotEmpty(t, first.TradeLog)

	again, err := Summarize(EventsFromTradeLog("TSLA", first.TradeLog), run.Curve)
	require.NoError(t, err)
	assert.Equal(t, first.NetReturn, again.NetReturn)
	assert.Equal(t, first.MaxDrawdown, again.MaxDrawdown)
	assert.Equal(t, first.TradeLog, again.TradeLog)
}
