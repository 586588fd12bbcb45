package market

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckBars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bars    []Bar
		wantErr error
	}{
		{"empty", nil, ErrInsufficientData},
		{"single", []Bar{{Time: day(1), Open: 1, Close: 1}}, ErrInsufficientData},
		{"duplicate time", []Bar{{Time: day(1), Open: 1, Close: 1}, {Time: day(1), Open: 1, Close: 1}}, ErrUnorderedBars},
		{"backwards", []Bar{{Time: day(2), Open: 1, Close: 1}, {Time: day(1), Open: 1, Close: 1}}, ErrUnorderedBars},
		{"irregular spacing ok", []Bar{{Time: day(1), Open: 1, Close: 1}, {Time: day(9), Open: 1, Close: 1}}, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := CheckBars(tt.bars)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckBarsRejectsNonPositivePrice(t *testing.T) {
	t.Parallel()

	err := CheckBars([]Bar{{Time: day(1), Open: 0, Close: 1}, {Time: day(2), Open: 1, Close: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestHighestHighLowestLow(t *testing.T) {
	t.Parallel()

	bars := []Bar{
		{High: 10, Low: 5},
		{High: 12, Low: 4},
		{High: 11, Low: 6},
	}
	assert.Equal(t, 12.0, HighestHigh(bars, 0, 3))
	assert.Equal(t, 11.0, HighestHigh(bars, 2, 10))
	assert.Equal(t, 4.0, LowestLow(bars, -5, 3))
	assert.Equal(t, 6.0, LowestLow(bars, 2, 3))
	assert.Equal(t, 0.0, LowestLow(bars, 3, 3))
}

func TestBodyFraction(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.8, Bar{Open: 9.2, High: 11, Low: 9, Close: 10.8}.BodyFraction(), 1e-9)
	assert.InDelta(t, 0.25, Bar{Open: 10.5, High: 11, Low: 9, Close: 10}.BodyFraction(), 1e-9)
	assert.Zero(t, Bar{Open: 10, High: 10, Low: 10, Close: 10}.BodyFraction())
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close,volume
2024-01-01,100,101,99,100,1000

2024-01-02T00:00:00Z,100,111,100,110,1200
2024-01-03,110,112,104,105,900
`
	bars, err := ReadCSV(strings.NewReader(in), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, day(1), bars[0].Time)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 110.0, bars[1].Close)
	assert.Equal(t, 900.0, bars[2].Volume)
	assert.NoError(t, CheckBars(bars))
}

func TestReadCSVFiltersRangeInclusive(t *testing.T) {
	t.Parallel()

	in := "2024-01-01,1,1,1,1\n2024-01-02,2,2,2,2\n2024-01-03,3,3,3,3\n2024-01-04,4,4,4,4\n"
	bars, err := ReadCSV(strings.NewReader(in), day(2), day(3))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[0].Open)
	assert.Equal(t, 3.0, bars[1].Open)
}

func TestReadCSVFillsMissingHighLow(t *testing.T) {
	t.Parallel()

	bars, err := ReadCSV(strings.NewReader("2024-01-01,100,,,104\n"), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 104.0, bars[0].High)
	assert.Equal(t, 100.0, bars[0].Low)
}

func TestReadCSVBadRows(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader("2024-01-01,1,2\n"), time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("yesterday,1,1,1,1\n"), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "bad time")

	_, err = ReadCSV(strings.NewReader("2024-01-01,abc,1,1,1\n"), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "bad number")
}

func TestCSVSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := "time,open,high,low,close,volume\n2024-01-01,1,1,1,1,0\n2024-01-02,2,2,2,2,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TSLA.csv"), []byte(data), 0o644))

	src := CSVSource{Dir: dir}

	bars, err := src.Bars(context.Background(), "tsla", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 2)

	_, err = src.Bars(context.Background(), "AAPL", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = src.Bars(context.Background(), "TSLA", day(5), day(9))
	assert.ErrorIs(t, err, ErrInsufficientData)
}
