// Package portfolio tracks positions across runs and symbols.
package portfolio

import (
	"errors"
	"time"
)

var (
	ErrDuplicateOpenPosition = errors.New("position already open")
	ErrNoOpenPosition        = errors.New("no open position")
	ErrAmbiguousPosition     = errors.New("several open positions, strategy ref required")
	ErrInvalidFill           = errors.New("invalid fill")
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Position is a tracked holding. Once closed it is history and never
// changes again.
type Position struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	StrategyRef string    `json:"strategy_ref"`
	Status      Status    `json:"status"`
	EntryTime   time.Time `json:"entry_time"`
	EntryPrice  float64   `json:"entry_price"`
	Quantity    float64   `json:"quantity"`
	ExitTime    time.Time `json:"exit_time,omitzero"`
	ExitPrice   float64   `json:"exit_price,omitzero"`
	RealizedPnL float64   `json:"realized_pnl,omitzero"`
}

func (p Position) IsOpen() bool { return p.Status == StatusOpen }
