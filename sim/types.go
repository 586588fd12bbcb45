package sim

import (
	"time"

	"github.com/rustyeddy/tradeplan/strategy"
)

// DefaultCapital is the nominal capital base positions are sized against.
const DefaultCapital = 10_000.0

// Side of a trade event. Only long trades exist, so an entry is a buy and
// an exit is a sell.
type Side string

const (
	Entry Side = "entry"
	Exit  Side = "exit"
)

// Reasons attached to trade events.
const (
	ReasonStart      = "start"
	ReasonBreakout   = "breakout"
	ReasonPullback   = "pullback"
	ReasonMACross    = "ma_cross"
	ReasonReversal   = "reversal"
	ReasonStop       = "stop"
	ReasonTarget     = "target"
	ReasonMaxHold    = "max_hold"
	ReasonEndOfRange = "end_of_range"
)

// TradeEvent is one fill. Events are immutable once emitted.
type TradeEvent struct {
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Time     time.Time `json:"time"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Reason   string    `json:"reason,omitempty"`
}

// EquityPoint is normalized equity (1.0 = starting capital) at a bar.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Options tunes a simulation.
type Options struct {
	Capital float64 // DefaultCapital when zero
}

// Run is the output of one simulation.
type Run struct {
	Symbol string
	Rules  strategy.Rules

	// Fallback is set when the descriptor resolved to no rule at all and the
	// run used buy-and-hold instead.
	Fallback bool

	Capital float64
	Events  []TradeEvent
	Curve   []EquityPoint
}
