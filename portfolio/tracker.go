package portfolio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/tradeplan/pkg/id"
	"github.com/rustyeddy/tradeplan/sim"
	"github.com/shopspring/decimal"
)

// Tracker maintains positions in a Store. Writes for one symbol are
// serialized; different symbols proceed in parallel.
type Tracker struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (t *Tracker) lock(symbol string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		t.locks[symbol] = l
	}
	return l
}

// Open records a new position for (symbol, ref).
func (t *Tracker) Open(ctx context.Context, symbol string, at time.Time, price, qty float64, ref string) (Position, error) {
	if price <= 0 || qty <= 0 {
		return Position{}, fmt.Errorf("%w: open %s at %v x %v", ErrInvalidFill, symbol, price, qty)
	}

	l := t.lock(symbol)
	l.Lock()
	defer l.Unlock()

	current, err := t.store.Load(ctx, symbol)
	if err != nil {
		return Position{}, err
	}
	if _, ok := findOpen(current, ref); ok {
		return Position{}, fmt.Errorf("%w: %s (%s)", ErrDuplicateOpenPosition, symbol, ref)
	}

	p := newPosition(symbol, at, price, qty, ref)
	if err := t.store.Save(ctx, p); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Close closes the single open position for symbol. When several strategy
// refs hold the symbol use CloseRef.
func (t *Tracker) Close(ctx context.Context, symbol string, at time.Time, price float64) (Position, error) {
	l := t.lock(symbol)
	l.Lock()
	defer l.Unlock()

	current, err := t.store.Load(ctx, symbol)
	if err != nil {
		return Position{}, err
	}

	var open []Position
	for _, p := range current {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	switch len(open) {
	case 0:
		return Position{}, fmt.Errorf("%w: %s", ErrNoOpenPosition, symbol)
	case 1:
	default:
		return Position{}, fmt.Errorf("%w: %s has %d", ErrAmbiguousPosition, symbol, len(open))
	}

	return t.closeAndSave(ctx, open[0], at, price)
}

// CloseRef closes the open position for (symbol, ref).
func (t *Tracker) CloseRef(ctx context.Context, symbol, ref string, at time.Time, price float64) (Position, error) {
	l := t.lock(symbol)
	l.Lock()
	defer l.Unlock()

	current, err := t.store.Load(ctx, symbol)
	if err != nil {
		return Position{}, err
	}
	p, ok := findOpen(current, ref)
	if !ok {
		return Position{}, fmt.Errorf("%w: %s (%s)", ErrNoOpenPosition, symbol, ref)
	}
	return t.closeAndSave(ctx, p, at, price)
}

func (t *Tracker) closeAndSave(ctx context.Context, p Position, at time.Time, price float64) (Position, error) {
	closed, err := closePosition(p, at, price)
	if err != nil {
		return Position{}, err
	}
	if err := t.store.Save(ctx, closed); err != nil {
		return Position{}, err
	}
	return closed, nil
}

// UnrealizedPnL marks every open position for symbol at price. It is zero
// when nothing is open.
func (t *Tracker) UnrealizedPnL(ctx context.Context, symbol string, price float64) (float64, error) {
	current, err := t.store.Load(ctx, symbol)
	if err != nil {
		return 0, err
	}

	total := decimal.Zero
	mark := decimal.NewFromFloat(price)
	for _, p := range current {
		if !p.IsOpen() {
			continue
		}
		total = total.Add(mark.Sub(decimal.NewFromFloat(p.EntryPrice)).Mul(decimal.NewFromFloat(p.Quantity)))
	}
	return total.InexactFloat64(), nil
}

// RealizedPnL totals the realized PnL of every closed position.
func (t *Tracker) RealizedPnL(ctx context.Context) (float64, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, p := range all {
		if p.Status == StatusClosed {
			total = total.Add(decimal.NewFromFloat(p.RealizedPnL))
		}
	}
	return total.InexactFloat64(), nil
}

// List returns positions ordered by entry time. An empty status lists all.
func (t *Tracker) List(ctx context.Context, status Status) ([]Position, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(all))
	for _, p := range all {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Apply folds a run's trade events into the portfolio under ref. The whole
// batch is checked before anything is written, so a bad event stream
// leaves the store untouched. It returns the positions it created or
// changed.
func (t *Tracker) Apply(ctx context.Context, ref string, events []sim.TradeEvent) ([]Position, error) {
	if len(events) == 0 {
		return nil, nil
	}

	symbols := make([]string, 0, 1)
	seen := map[string]bool{}
	for _, ev := range events {
		if !seen[ev.Symbol] {
			seen[ev.Symbol] = true
			symbols = append(symbols, ev.Symbol)
		}
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		l := t.lock(s)
		l.Lock()
		defer l.Unlock()
	}

	state := make(map[string][]Position, len(symbols))
	for _, s := range symbols {
		current, err := t.store.Load(ctx, s)
		if err != nil {
			return nil, err
		}
		state[s] = current
	}

	var touched []string
	changed := map[string]Position{}
	for i, ev := range events {
		switch ev.Side {
		case sim.Entry:
			if ev.Price <= 0 || ev.Quantity <= 0 {
				return nil, fmt.Errorf("event %d: %w", i, ErrInvalidFill)
			}
			if _, ok := findOpen(state[ev.Symbol], ref); ok {
				return nil, fmt.Errorf("event %d: %w: %s (%s)", i, ErrDuplicateOpenPosition, ev.Symbol, ref)
			}
			p := newPosition(ev.Symbol, ev.Time, ev.Price, ev.Quantity, ref)
			state[ev.Symbol] = append(state[ev.Symbol], p)
			touched = append(touched, p.ID)
			changed[p.ID] = p

		case sim.Exit:
			positions := state[ev.Symbol]
			idx := -1
			for j, p := range positions {
				if p.IsOpen() && p.StrategyRef == ref {
					idx = j
					break
				}
			}
			if idx < 0 {
				return nil, fmt.Errorf("event %d: %w: %s (%s)", i, ErrNoOpenPosition, ev.Symbol, ref)
			}
			closed, err := closePosition(positions[idx], ev.Time, ev.Price)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			positions[idx] = closed
			if _, ok := changed[closed.ID]; !ok {
				touched = append(touched, closed.ID)
			}
			changed[closed.ID] = closed

		default:
			return nil, fmt.Errorf("event %d: unknown side %q", i, ev.Side)
		}
	}

	out := make([]Position, len(touched))
	for i, pid := range touched {
		out[i] = changed[pid]
	}
	if err := t.store.Save(ctx, out...); err != nil {
		return nil, err
	}
	return out, nil
}

func newPosition(symbol string, at time.Time, price, qty float64, ref string) Position {
	return Position{
		ID:          id.New(),
		Symbol:      symbol,
		StrategyRef: ref,
		Status:      StatusOpen,
		EntryTime:   at.UTC(),
		EntryPrice:  price,
		Quantity:    qty,
	}
}

func closePosition(p Position, at time.Time, price float64) (Position, error) {
	if price <= 0 {
		return Position{}, fmt.Errorf("%w: close %s at %v", ErrInvalidFill, p.Symbol, price)
	}
	if !at.After(p.EntryTime) {
		return Position{}, fmt.Errorf("%w: close %s at %s, opened %s",
			ErrInvalidFill, p.Symbol, at.Format(time.RFC3339), p.EntryTime.Format(time.RFC3339))
	}

	pnl := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(p.EntryPrice)).
		Mul(decimal.NewFromFloat(p.Quantity))

	p.Status = StatusClosed
	p.ExitTime = at.UTC()
	p.ExitPrice = price
	p.RealizedPnL = pnl.InexactFloat64()
	return p, nil
}

func findOpen(positions []Position, ref string) (Position, bool) {
	for _, p := range positions {
		if p.IsOpen() && p.StrategyRef == ref {
			return p, true
		}
	}
	return Position{}, false
}
