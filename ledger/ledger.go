// Package ledger pairs trade events into a trade log and computes run metrics.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeplan/sim"
)

var (
	// ErrUnmatchedExit is returned for an exit with no open entry to close.
	ErrUnmatchedExit = errors.New("unmatched exit")

	// ErrUnmatchedEntry is returned for an entry while another is open, or
	// an entry left open at the end of the event stream.
	ErrUnmatchedEntry = errors.New("unmatched entry")
)

// TradeRow is one round trip in the trade log.
type TradeRow struct {
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	Quantity   float64   `json:"quantity"`
	Reason     string    `json:"reason,omitempty"`
}

// Metrics summarizes one simulation run.
type Metrics struct {
	TradeLog    []TradeRow
	NetReturn   float64
	MaxDrawdown float64

	Trades int
	Wins   int
	Losses int

	WinRate      float64
	GrossProfit  float64
	GrossLoss    float64 // positive
	ProfitFactor float64 // 0 without winners, MaxProfitFactor when nothing lost
}

// MaxProfitFactor stands in for an unbounded profit factor when no trade lost.
const MaxProfitFactor = 999

// Summarize pairs events into trade rows and measures the equity curve.
// Entries and exits must alternate strictly, starting with an entry. An
// empty event list is valid and yields an empty trade log.
func Summarize(events []sim.TradeEvent, curve []sim.EquityPoint) (Metrics, error) {
	rows, err := pair(events)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		TradeLog:    rows,
		NetReturn:   netReturn(curve),
		MaxDrawdown: MaxDrawdown(curve),
		Trades:      len(rows),
	}

	for _, r := range rows {
		switch {
		case r.PnL > 0:
			m.Wins++
			m.GrossProfit += r.PnL
		case r.PnL < 0:
			m.Losses++
			m.GrossLoss -= r.PnL
		}
	}
	if m.Trades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Trades)
	}
	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = MaxProfitFactor
	}
	return m, nil
}

func pair(events []sim.TradeEvent) ([]TradeRow, error) {
	rows := make([]TradeRow, 0, len(events)/2)

	var (
		open   sim.TradeEvent
		isOpen bool
	)
	for i, ev := range events {
		switch ev.Side {
		case sim.Entry:
			if isOpen {
				return nil, fmt.Errorf("%w: event %d at %s while %s is open since %s",
					ErrUnmatchedEntry, i, ev.Time.Format(time.RFC3339), open.Symbol, open.Time.Format(time.RFC3339))
			}
			open, isOpen = ev, true

		case sim.Exit:
			if !isOpen {
				return nil, fmt.Errorf("%w: event %d at %s", ErrUnmatchedExit, i, ev.Time.Format(time.RFC3339))
			}
			if ev.Symbol != open.Symbol || ev.Quantity != open.Quantity || !ev.Time.After(open.Time) {
				return nil, fmt.Errorf("%w: event %d does not close the %s entry at %s",
					ErrUnmatchedExit, i, open.Symbol, open.Time.Format(time.RFC3339))
			}
			rows = append(rows, TradeRow{
				EntryTime:  open.Time,
				EntryPrice: open.Price,
				ExitTime:   ev.Time,
				ExitPrice:  ev.Price,
				PnL:        (ev.Price - open.Price) * ev.Quantity,
				Quantity:   ev.Quantity,
				Reason:     ev.Reason,
			})
			isOpen = false

		default:
			return nil, fmt.Errorf("event %d: unknown side %q", i, ev.Side)
		}
	}
	if isOpen {
		return nil, fmt.Errorf("%w: %s entry at %s never exits", ErrUnmatchedEntry, open.Symbol, open.Time.Format(time.RFC3339))
	}
	return rows, nil
}

func netReturn(curve []sim.EquityPoint) float64 {
	if len(curve) == 0 || curve[0].Value == 0 {
		return 0
	}
	return curve[len(curve)-1].Value/curve[0].Value - 1
}

// MaxDrawdown is the largest peak-to-trough decline of the curve as a
// fraction of the peak. It is 0 for a non-decreasing curve.
func MaxDrawdown(curve []sim.EquityPoint) float64 {
	var peak, dd float64
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if d := (peak - p.Value) / peak; d > dd {
			dd = d
		}
	}
	return dd
}

// EventsFromTradeLog rebuilds the event stream a trade log was built from.
func EventsFromTradeLog(symbol string, rows []TradeRow) []sim.TradeEvent {
	events := make([]sim.TradeEvent, 0, 2*len(rows))
	for _, r := range rows {
		events = append(events,
			sim.TradeEvent{Symbol: symbol, Side: sim.Entry, Time: r.EntryTime, Price: r.EntryPrice, Quantity: r.Quantity},
			sim.TradeEvent{Symbol: symbol, Side: sim.Exit, Time: r.ExitTime, Price: r.ExitPrice, Quantity: r.Quantity, Reason: r.Reason},
		)
	}
	return events
}
