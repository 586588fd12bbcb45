package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	trade := TradeRecord{
		TradeID:    "01HV0000000000000000000050-001",
		RunID:      "01HV0000000000000000000050",
		Symbol:     "TSLA",
		Quantity:   12.5,
		EntryPrice: 180.25,
		ExitPrice:  190.5,
		OpenTime:   time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC),
		CloseTime:  time.Date(2024, 3, 18, 14, 20, 30, 0, time.UTC),
		RealizedPL: 128.13,
		Reason:     "target",
	}

	out := FormatTradeOrg(trade)
	assert.True(t, strings.HasPrefix(out, "** Trade: TSLA (0050-001)\n"))
	assert.Contains(t, out, ":TRADE_ID: 01HV0000000000000000000050-001")
	assert.Contains(t, out, ":QUANTITY: 12.5000")
	assert.Contains(t, out, ":ENTRY_PRICE: 180.2500")
	assert.Contains(t, out, ":OPEN_TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, out, ":REALIZED_PL: 128.13")
	assert.Contains(t, out, ":REASON: target")
	assert.Contains(t, out, "*** Thesis")
	assert.Contains(t, out, "*** Review")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "45678901", shortID("12345678901"))
}

func TestFormatResultOrg(t *testing.T) {
	t.Parallel()

	r := sampleResult(t, "01HV0000000000000000000051")
	out, err := FormatResultOrg(r)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: TSLA 2024-04-01 .. 2024-04-04\n"))
	assert.Contains(t, out, ":RUN_ID:      01HV0000000000000000000051")
	assert.Contains(t, out, ":DATASET:     csv:testdata")
	assert.Contains(t, out, ":START_BAL:   10000.00")
	assert.Contains(t, out, ":RETURN_PCT:  3.00")
	assert.Contains(t, out, ":TRADES:      2")
	assert.Contains(t, out, ":WIN_RATE:    50.00")
	assert.Contains(t, out, ":PROFIT_FAC:  2.50")
	assert.Contains(t, out, ":CREATED:")
	assert.Contains(t, out, "| Entry            | Breakout above the 20-day high |")
	assert.Contains(t, out, "- technical\n- news")

	// trades nest below the run
	assert.Contains(t, out, "\n** Trades\n*** Trade: TSLA (0051-001)")
	assert.Contains(t, out, "\n**** Thesis")
}

func TestWriteResultOrg(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, WriteResultOrg(path, sampleResult(t, "01HV0000000000000000000052")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "* BACKTEST: TSLA")
}
