package strategy

import (
	"fmt"
	"strings"
)

// EntryKind enumerates the entry rules the simulator understands.
type EntryKind int

const (
	EntryUnresolved EntryKind = iota
	EntryAtStart              // buy at the open of the first bar
	EntryBreakout             // close above the highest high of the previous Lookback bars
	EntryPullback             // close Pct below the highest high of the last Lookback bars
	EntryMovingAverage        // close crosses above the Lookback-bar moving average
	EntryReversal             // oversold RSI closing at or under the lower Bollinger band
)

func (k EntryKind) String() string {
	switch k {
	case EntryAtStart:
		return "at_start"
	case EntryBreakout:
		return "breakout"
	case EntryPullback:
		return "pullback"
	case EntryMovingAverage:
		return "moving_average"
	case EntryReversal:
		return "reversal"
	default:
		return "unresolved"
	}
}

// EntryRule is one resolved entry. Lookback is the window of the entry
// kind, and the RSI period for EntryReversal. Zero confirmation fields are
// disabled.
type EntryRule struct {
	Kind        EntryKind
	Lookback    int
	Pct         float64
	Exponential bool // EntryMovingAverage uses an EMA instead of an SMA

	// Breakout volume confirmation: the bar's volume is above VolumeMult
	// times the VolumeLookback-bar average.
	VolumeMult     float64
	VolumeLookback int

	// MinBody is the smallest candle body, as a fraction of the bar's
	// range, for breakout and reversal signals.
	MinBody float64

	RSIBelow     float64
	BandLookback int
	BandDev      float64
}

// SizingKind enumerates position sizing rules.
type SizingKind int

const (
	SizingUnparseable SizingKind = iota
	SizingFullNotional
	SizingFixedFraction // Fraction of capital is spent on the position
	SizingRiskFraction  // Fraction of capital is lost if the stop is hit
)

func (k SizingKind) String() string {
	switch k {
	case SizingFullNotional:
		return "full_notional"
	case SizingFixedFraction:
		return "fixed_fraction"
	case SizingRiskFraction:
		return "risk_fraction"
	default:
		return "unparseable"
	}
}

type SizingRule struct {
	Kind     SizingKind
	Fraction float64
}

// StopKind enumerates initial stop-loss rules.
type StopKind int

const (
	StopNone StopKind = iota
	StopPercent
	StopSwingLow
	StopATR // Multiple times the Lookback-bar ATR below entry
)

func (k StopKind) String() string {
	switch k {
	case StopPercent:
		return "percent"
	case StopSwingLow:
		return "swing_low"
	case StopATR:
		return "atr"
	default:
		return "none"
	}
}

type StopRule struct {
	Kind     StopKind
	Pct      float64
	Lookback int
	Multiple float64
}

// TargetKind enumerates take-profit rules.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetPercent
	TargetR // multiple of the initial risk (entry - stop)
)

func (k TargetKind) String() string {
	switch k {
	case TargetPercent:
		return "percent"
	case TargetR:
		return "r_multiple"
	default:
		return "none"
	}
}

type TargetRule struct {
	Kind  TargetKind
	Value float64
}

// Rules is the mechanical form of a Descriptor.
type Rules struct {
	Entry  EntryRule
	Sizing SizingRule
	Stop   StopRule
	Target TargetRule

	MaxHoldBars int     // 0 disables
	BreakEvenR  float64 // move stop to entry after this R gain, 0 disables
	TrailPct    float64 // trailing stop distance from the highest high, 0 disables

	// Unresolved names descriptor fields that produced no rule.
	Unresolved []string
}

// BuyAndHold reports whether nothing in the descriptor could be resolved.
func (r Rules) BuyAndHold() bool {
	return r.Entry.Kind == EntryUnresolved &&
		r.Sizing.Kind == SizingUnparseable &&
		r.Stop.Kind == StopNone &&
		r.Target.Kind == TargetNone &&
		r.MaxHoldBars == 0 &&
		r.BreakEvenR == 0 &&
		r.TrailPct == 0
}

// BuyAndHoldRules buys the whole capital at the first open and holds to the end.
func BuyAndHoldRules() Rules {
	return Rules{
		Entry:  EntryRule{Kind: EntryAtStart},
		Sizing: SizingRule{Kind: SizingFullNotional, Fraction: 1},
	}
}

func (r Rules) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "entry=%s", r.Entry.Kind)
	switch r.Entry.Kind {
	case EntryBreakout:
		fmt.Fprintf(&b, "(%d", r.Entry.Lookback)
		if r.Entry.VolumeMult > 0 {
			fmt.Fprintf(&b, " vol>%gx%d", r.Entry.VolumeMult, r.Entry.VolumeLookback)
		}
		if r.Entry.MinBody > 0 {
			fmt.Fprintf(&b, " body>=%.0f%%", r.Entry.MinBody*100)
		}
		b.WriteString(")")
	case EntryReversal:
		fmt.Fprintf(&b, "(rsi%d<%g bb%dx%g body>=%.0f%%)",
			r.Entry.Lookback, r.Entry.RSIBelow, r.Entry.BandLookback, r.Entry.BandDev, r.Entry.MinBody*100)
	case EntryPullback:
		fmt.Fprintf(&b, "(%.2f%%/%d)", r.Entry.Pct*100, r.Entry.Lookback)
	case EntryMovingAverage:
		avg := "sma"
		if r.Entry.Exponential {
			avg = "ema"
		}
		fmt.Fprintf(&b, "(%s%d)", avg, r.Entry.Lookback)
	}
	fmt.Fprintf(&b, " sizing=%s", r.Sizing.Kind)
	if r.Sizing.Kind == SizingFixedFraction || r.Sizing.Kind == SizingRiskFraction {
		fmt.Fprintf(&b, "(%.2f%%)", r.Sizing.Fraction*100)
	}
	fmt.Fprintf(&b, " stop=%s", r.Stop.Kind)
	switch r.Stop.Kind {
	case StopPercent:
		fmt.Fprintf(&b, "(%.2f%%)", r.Stop.Pct*100)
	case StopSwingLow:
		fmt.Fprintf(&b, "(%d)", r.Stop.Lookback)
	case StopATR:
		fmt.Fprintf(&b, "(%gx%d)", r.Stop.Multiple, r.Stop.Lookback)
	}
	fmt.Fprintf(&b, " target=%s", r.Target.Kind)
	if r.Target.Kind != TargetNone {
		fmt.Fprintf(&b, "(%g)", r.Target.Value)
	}
	if r.MaxHoldBars > 0 {
		fmt.Fprintf(&b, " max_hold=%d", r.MaxHoldBars)
	}
	if r.BreakEvenR > 0 {
		fmt.Fprintf(&b, " break_even=%gR", r.BreakEvenR)
	}
	if r.TrailPct > 0 {
		fmt.Fprintf(&b, " trail=%.2f%%", r.TrailPct*100)
	}
	return b.String()
}
