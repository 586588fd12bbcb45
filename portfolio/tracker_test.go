package portfolio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/tradeplan/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

func at(days int) time.Time { return t0.AddDate(0, 0, days) }

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, tr *Tracker)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewTracker(NewMemoryStore()))
	})
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "positions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, NewTracker(s))
	})
}

func TestOpenClose(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		p, err := tr.Open(ctx, "TSLA", at(0), 100, 10, "plan-1")
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, StatusOpen, p.Status)

		_, err = tr.Open(ctx, "TSLA", at(1), 101, 10, "plan-1")
		assert.ErrorIs(t, err, ErrDuplicateOpenPosition)

		u, err := tr.UnrealizedPnL(ctx, "TSLA", 104.5)
		require.NoError(t, err)
		assert.InDelta(t, 45.0, u, 1e-9)

		closed, err := tr.Close(ctx, "TSLA", at(2), 110.1)
		require.NoError(t, err)
		assert.Equal(t, p.ID, closed.ID)
		assert.Equal(t, StatusClosed, closed.Status)
		assert.Equal(t, 101.0, closed.RealizedPnL, "decimal math avoids float drift")
		assert.True(t, closed.ExitTime.Equal(at(2)))

		u, err = tr.UnrealizedPnL(ctx, "TSLA", 120)
		require.NoError(t, err)
		assert.Zero(t, u)

		_, err = tr.Close(ctx, "TSLA", at(3), 111)
		assert.ErrorIs(t, err, ErrNoOpenPosition)

		// closed history stays, a new position can open
		_, err = tr.Open(ctx, "TSLA", at(3), 111, 5, "plan-1")
		require.NoError(t, err)

		all, err := tr.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, StatusClosed, all[0].Status)
		assert.True(t, all[0].EntryTime.Equal(at(0)))
		assert.Equal(t, 101.0, all[0].RealizedPnL)
		assert.Equal(t, StatusOpen, all[1].Status)

		total, err := tr.RealizedPnL(ctx)
		require.NoError(t, err)
		assert.Equal(t, 101.0, total)
	})
}

func TestCloseNeverOpened(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()
		_, err := tr.Open(ctx, "AAPL", at(0), 50, 1, "a")
		require.NoError(t, err)
		before, err := tr.List(ctx, "")
		require.NoError(t, err)

		_, err = tr.Close(ctx, "NVDA", at(1), 10)
		assert.ErrorIs(t, err, ErrNoOpenPosition)

		after, err := tr.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestInvalidFills(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		_, err := tr.Open(ctx, "TSLA", at(0), 0, 1, "a")
		assert.ErrorIs(t, err, ErrInvalidFill)
		_, err = tr.Open(ctx, "TSLA", at(0), 10, -1, "a")
		assert.ErrorIs(t, err, ErrInvalidFill)

		_, err = tr.Open(ctx, "TSLA", at(1), 10, 1, "a")
		require.NoError(t, err)
		_, err = tr.Close(ctx, "TSLA", at(1), 11)
		assert.ErrorIs(t, err, ErrInvalidFill, "exit must come after entry")
		_, err = tr.Close(ctx, "TSLA", at(2), 0)
		assert.ErrorIs(t, err, ErrInvalidFill)

		open, err := tr.List(ctx, StatusOpen)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})
}

func TestRefsShareSymbol(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		_, err := tr.Open(ctx, "TSLA", at(0), 100, 1, "a")
		require.NoError(t, err)
		_, err = tr.Open(ctx, "TSLA", at(1), 102, 2, "b")
		require.NoError(t, err)

		_, err = tr.Close(ctx, "TSLA", at(2), 105)
		assert.ErrorIs(t, err, ErrAmbiguousPosition)

		u, err := tr.UnrealizedPnL(ctx, "TSLA", 105)
		require.NoError(t, err)
		assert.InDelta(t, 5.0+6.0, u, 1e-9)

		p, err := tr.CloseRef(ctx, "TSLA", "b", at(2), 105)
		require.NoError(t, err)
		assert.Equal(t, "b", p.StrategyRef)
		assert.InDelta(t, 6.0, p.RealizedPnL, 1e-9)

		_, err = tr.CloseRef(ctx, "TSLA", "b", at(3), 105)
		assert.ErrorIs(t, err, ErrNoOpenPosition)

		p, err = tr.Close(ctx, "TSLA", at(3), 99)
		require.NoError(t, err)
		assert.Equal(t, "a", p.StrategyRef)
	})
}

func TestListFiltersAndOrders(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		// opened out of time order
		_, err := tr.Open(ctx, "MSFT", at(5), 300, 1, "x")
		require.NoError(t, err)
		_, err = tr.Open(ctx, "AAPL", at(1), 150, 1, "x")
		require.NoError(t, err)
		_, err = tr.Open(ctx, "TSLA", at(3), 200, 1, "x")
		require.NoError(t, err)
		_, err = tr.Close(ctx, "TSLA", at(4), 210)
		require.NoError(t, err)

		all, err := tr.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"AAPL", "TSLA", "MSFT"}, symbols(all))

		open, err := tr.List(ctx, StatusOpen)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbols(open))

		closed, err := tr.List(ctx, StatusClosed)
		require.NoError(t, err)
		assert.Equal(t, []string{"TSLA"}, symbols(closed))
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	events := []sim.TradeEvent{
		{Symbol: "TSLA", Side: sim.Entry, Time: at(0), Price: 100, Quantity: 10},
		{Symbol: "TSLA", Side: sim.Exit, Time: at(2), Price: 90, Quantity: 10},
		{Symbol: "TSLA", Side: sim.Entry, Time: at(3), Price: 95, Quantity: 10},
	}

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		got, err := tr.Apply(ctx, "run-1", events)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, StatusClosed, got[0].Status)
		assert.InDelta(t, -100.0, got[0].RealizedPnL, 1e-9)
		assert.Equal(t, StatusOpen, got[1].Status)

		// same ref again collides with the open position
		_, err = tr.Apply(ctx, "run-1", events[2:])
		assert.ErrorIs(t, err, ErrDuplicateOpenPosition)

		// a different ref is independent
		_, err = tr.Apply(ctx, "run-2", events)
		require.NoError(t, err)

		open, err := tr.List(ctx, StatusOpen)
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})
}

func TestApplyIsAtomic(t *testing.T) {
	t.Parallel()

	bad := []sim.TradeEvent{
		{Symbol: "TSLA", Side: sim.Entry, Time: at(0), Price: 100, Quantity: 10},
		{Symbol: "TSLA", Side: sim.Exit, Time: at(1), Price: 101, Quantity: 10},
		{Symbol: "TSLA", Side: sim.Exit, Time: at(2), Price: 102, Quantity: 10},
	}

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()

		_, err := tr.Apply(ctx, "run-1", bad)
		assert.ErrorIs(t, err, ErrNoOpenPosition)

		all, err := tr.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestConcurrentOpens(t *testing.T) {
	t.Parallel()

	stores(t, func(t *testing.T, tr *Tracker) {
		ctx := context.Background()
		syms := []string{"TSLA", "AAPL", "NVDA", "MSFT"}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins = map[string]int{}
		)
		for _, s := range syms {
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := tr.Open(ctx, s, at(i), 10+float64(i), 1, "shared")
					switch {
					case err == nil:
						mu.Lock()
						wins[s]++
						mu.Unlock()
					case !errors.Is(err, ErrDuplicateOpenPosition):
						t.Errorf("open %s: %v", s, err)
					}
				}()
			}
		}
		wg.Wait()

		for _, s := range syms {
			assert.Equal(t, 1, wins[s], fmt.Sprintf("one open position for %s", s))
		}
		open, err := tr.List(ctx, StatusOpen)
		require.NoError(t, err)
		assert.Len(t, open, len(syms))
	})
}

func symbols(ps []Position) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Symbol
	}
	return out
}
