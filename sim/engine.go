// Package sim replays a strategy against a bar series.
//
// Execution policy:
//   - Decisions made at a bar's close (entry signals, max-hold exits) fill at
//     the next bar's open.
//   - Start-of-range entries, including the buy-and-hold fallback, fill at the
//     first bar's open.
//   - Stop and target orders rest between bars. They fill at their level, or
//     at the open when the bar gaps through it. When both are inside one bar
//     the stop fills first. They are not checked on the bar a position was
//     filled on.
//   - An entry needs at least one bar after its fill bar, so signals that
//     would fill on the last bar are dropped.
//   - A position still open on the last bar is sold at its close.
//   - Indicators see a bar once it has closed. An ATR stop uses the ATR as of
//     the bar before the fill bar.
//   - Window based entries wait for a full window: a breakout needs Lookback
//     earlier bars, a pullback Lookback bars including the signal bar, and
//     indicator entries wait until every indicator they read is ready.
//
// The equity curve has one point per bar. The first bar is marked at its open
// (the starting capital, 1.0); every later bar is marked at its close.
package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradeplan/indicators"
	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/risk"
	"github.com/rustyeddy/tradeplan/strategy"
)

// Simulate resolves d into rules and replays them over bars. When nothing
// in d resolves to a rule the run is an explicit buy-and-hold.
func Simulate(symbol string, bars []market.Bar, d strategy.Descriptor, opts Options) (Run, error) {
	if err := market.CheckBars(bars); err != nil {
		return Run{}, err
	}

	rules, err := strategy.Parse(d)
	if err != nil {
		return Run{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(d.Symbol), strings.TrimSpace(symbol)) {
		return Run{}, fmt.Errorf("%w: strategy is for %q, not %q", strategy.ErrMalformedStrategy, d.Symbol, symbol)
	}

	fallback := rules.BuyAndHold()
	if fallback {
		unresolved := rules.Unresolved
		rules = strategy.BuyAndHoldRules()
		rules.Unresolved = unresolved
	}

	run, err := SimulateRules(symbol, bars, rules, opts)
	if err != nil {
		return Run{}, err
	}
	run.Fallback = fallback
	return run, nil
}

// SimulateRules replays already resolved rules over bars.
func SimulateRules(symbol string, bars []market.Bar, rules strategy.Rules, opts Options) (Run, error) {
	if err := market.CheckBars(bars); err != nil {
		return Run{}, err
	}

	capital := opts.Capital
	if capital <= 0 {
		capital = DefaultCapital
	}

	e := &engine{
		symbol:  symbol,
		bars:    bars,
		rules:   rules,
		capital: capital,
		cash:    capital,
		events:  make([]TradeEvent, 0, 2),
		curve:   make([]EquityPoint, 0, len(bars)),
	}
	if r := rules.Entry; r.Kind == strategy.EntryMovingAverage && r.Lookback > 0 {
		if r.Exponential {
			e.ma = indicators.NewEMA(r.Lookback)
		} else {
			e.ma = indicators.NewSMA(r.Lookback)
		}
	}
	if r := rules.Entry; r.Kind == strategy.EntryReversal && r.Lookback > 0 && r.BandLookback > 0 {
		e.rsi = indicators.NewRSI(r.Lookback)
		e.bands = indicators.NewBollinger(r.BandLookback, r.BandDev)
	}
	if r := rules.Entry; r.Kind == strategy.EntryBreakout && r.VolumeMult > 0 && r.VolumeLookback > 0 {
		e.vol = indicators.NewVolumeSMA(r.VolumeLookback)
	}
	if r := rules.Stop; r.Kind == strategy.StopATR && r.Lookback > 0 {
		e.atr = indicators.NewATR(r.Lookback)
	}
	e.run()

	return Run{
		Symbol:  symbol,
		Rules:   rules,
		Capital: capital,
		Events:  e.events,
		Curve:   e.curve,
	}, nil
}

type position struct {
	open       bool
	entryIdx   int
	entryPrice float64
	qty        float64

	stop    float64 // 0 means none
	target  float64 // 0 means none
	risk    float64 // entry - initial stop, 0 without a stop
	highest float64 // highest high since entry
}

type engine struct {
	symbol  string
	bars    []market.Bar
	rules   strategy.Rules
	capital float64

	cash   float64
	pos    position
	events []TradeEvent
	curve  []EquityPoint

	ma       indicators.Indicator // nil unless the entry is a moving-average cross
	maPrev   float64
	maPrevOK bool
	atr      *indicators.ATR // nil unless the stop is ATR based

	rsi   *indicators.RSI       // reversal entries only
	bands *indicators.Bollinger // reversal entries only
	vol   *indicators.SMA       // average volume for confirmed breakouts
}

func (e *engine) run() {
	n := len(e.bars)
	var pendingEntry, pendingExit string

	for i, b := range e.bars {
		last := i == n-1

		// 1) Orders queued at the previous close fill at this open.
		switch {
		case e.pos.open && pendingExit != "":
			e.closePosition(b.Time, b.Open, pendingExit)
		case !e.pos.open && i == 0 && e.entersAtStart():
			e.openPosition(i, b.Open, ReasonStart)
		case !e.pos.open && pendingEntry != "":
			e.openPosition(i, b.Open, pendingEntry)
		}
		pendingEntry, pendingExit = "", ""

		// 2) Resting stop / target orders.
		if e.pos.open && i > e.pos.entryIdx {
			if px, reason, hit := checkExit(e.pos, b); hit {
				e.closePosition(b.Time, px, reason)
			}
		}

		// 3) Decisions at the close.
		e.observe(b)
		if e.pos.open {
			if last {
				e.closePosition(b.Time, b.Close, ReasonEndOfRange)
			} else {
				e.manage(b)
				held := i - e.pos.entryIdx + 1
				if e.rules.MaxHoldBars > 0 && held >= e.rules.MaxHoldBars {
					pendingExit = ReasonMaxHold
				}
			}
		} else if i+2 < n {
			if reason, ok := e.entrySignal(i); ok {
				pendingEntry = reason
			}
		}

		// 4) Mark to market.
		v := 1.0 // nothing has moved since the first open
		if i > 0 {
			v = e.equity(b.Close) / e.capital
		}
		e.curve = append(e.curve, EquityPoint{Time: b.Time, Value: v})
	}
}

// observe feeds a closed bar to the indicators.
func (e *engine) observe(b market.Bar) {
	if e.ma != nil {
		e.maPrev, e.maPrevOK = e.ma.Value(), e.ma.Ready()
		e.ma.Update(b)
	}
	if e.atr != nil {
		e.atr.Update(b)
	}
	if e.rsi != nil {
		e.rsi.Update(b)
		e.bands.Update(b)
	}
	if e.vol != nil {
		e.vol.Update(b)
	}
}

func (e *engine) entersAtStart() bool {
	k := e.rules.Entry.Kind
	return k == strategy.EntryAtStart || k == strategy.EntryUnresolved
}

func (e *engine) entrySignal(i int) (string, bool) {
	b := e.bars[i]
	r := e.rules.Entry

	switch r.Kind {
	case strategy.EntryBreakout:
		if r.Lookback < 1 || i < r.Lookback {
			return "", false
		}
		hi := market.HighestHigh(e.bars, i-r.Lookback, i)
		return ReasonBreakout, b.Close > hi && e.confirmed(b)

	case strategy.EntryPullback:
		if r.Lookback < 1 || i+1 < r.Lookback {
			return "", false
		}
		hi := market.HighestHigh(e.bars, i-r.Lookback+1, i+1)
		return ReasonPullback, b.Close <= hi*(1-r.Pct)

	case strategy.EntryReversal:
		if e.rsi == nil || !e.rsi.Ready() || !e.bands.Ready() {
			return "", false
		}
		return ReasonReversal, e.rsi.Value() < r.RSIBelow &&
			b.Close <= e.bands.Lower() &&
			b.BodyFraction() >= r.MinBody

	case strategy.EntryMovingAverage:
		if i < 1 || e.ma == nil || !e.maPrevOK || !e.ma.Ready() {
			return "", false
		}
		return ReasonMACross, b.Close > e.ma.Value() && e.bars[i-1].Close <= e.maPrev
	}
	return "", false
}

// confirmed applies the optional volume and candle body filters of a
// breakout. The volume average includes b.
func (e *engine) confirmed(b market.Bar) bool {
	r := e.rules.Entry
	if e.vol != nil && (!e.vol.Ready() || b.Volume <= r.VolumeMult*e.vol.Value()) {
		return false
	}
	return r.MinBody <= 0 || b.BodyFraction() >= r.MinBody
}

func (e *engine) openPosition(idx int, price float64, reason string) {
	stop := e.initialStop(idx, price)
	qty := e.size(price, stop)
	if qty <= 0 {
		return
	}

	var target float64
	switch e.rules.Target.Kind {
	case strategy.TargetPercent:
		target = price * (1 + e.rules.Target.Value)
	case strategy.TargetR:
		if stop > 0 {
			target = risk.TargetFromR(price, stop, e.rules.Target.Value)
		}
	}

	var initialRisk float64
	if stop > 0 {
		initialRisk = price - stop
	}

	e.cash -= qty * price
	e.pos = position{
		open:       true,
		entryIdx:   idx,
		entryPrice: price,
		qty:        qty,
		stop:       stop,
		target:     target,
		risk:       initialRisk,
		highest:    price,
	}
	e.emit(Entry, e.bars[idx].Time, price, qty, reason)
}

func (e *engine) closePosition(t time.Time, price float64, reason string) {
	p := e.pos
	e.pos = position{}
	e.cash += p.qty * price
	e.emit(Exit, t, price, p.qty, reason)
}

func (e *engine) emit(side Side, t time.Time, price, qty float64, reason string) {
	e.events = append(e.events, TradeEvent{
		Symbol:   e.symbol,
		Side:     side,
		Time:     t,
		Price:    price,
		Quantity: qty,
		Reason:   reason,
	})
}

// initialStop places the stop using only bars before the fill bar.
func (e *engine) initialStop(idx int, price float64) float64 {
	var stop float64
	switch r := e.rules.Stop; r.Kind {
	case strategy.StopPercent:
		stop = price * (1 - r.Pct)
	case strategy.StopSwingLow:
		if idx == 0 {
			return 0
		}
		stop = market.LowestLow(e.bars, idx-r.Lookback, idx)
	case strategy.StopATR:
		if e.atr == nil || !e.atr.Ready() {
			return 0
		}
		stop = price - r.Multiple*e.atr.Value()
	}
	if stop <= 0 || stop >= price {
		return 0
	}
	return stop
}

// size returns units to buy. Sizing is against current equity, which is
// all cash while flat.
func (e *engine) size(price, stop float64) float64 {
	s := e.rules.Sizing
	switch s.Kind {
	case strategy.SizingFixedFraction:
		return risk.FractionUnits(e.cash, s.Fraction, price)
	case strategy.SizingRiskFraction:
		if stop > 0 {
			return risk.RiskUnits(e.cash, s.Fraction, price, stop)
		}
	}
	return risk.FractionUnits(e.cash, 1, price)
}

// manage updates break-even and trailing stops after a close. The new stop
// applies from the next bar.
func (e *engine) manage(b market.Bar) {
	p := &e.pos
	if b.High > p.highest {
		p.highest = b.High
	}

	if be := e.rules.BreakEvenR; be > 0 && p.risk > 0 && p.stop < p.entryPrice {
		if p.highest >= p.entryPrice+be*p.risk {
			p.stop = p.entryPrice
		}
	}
	if tr := e.rules.TrailPct; tr > 0 {
		if trail := p.highest * (1 - tr); trail > p.stop {
			p.stop = trail
		}
	}
}

func (e *engine) equity(mark float64) float64 {
	if !e.pos.open {
		return e.cash
	}
	return e.cash + e.pos.qty*mark
}

// checkExit models stop/take hits within a bar for a long position.
// A gap through a level fills at the open. If both levels are inside the
// bar we assume the worst case for the trader (stop first).
func checkExit(p position, b market.Bar) (exitPx float64, reason string, hit bool) {
	if !p.open {
		return 0, "", false
	}

	stopHit := p.stop > 0 && b.Low <= p.stop
	takeHit := p.target > 0 && b.High >= p.target

	switch {
	case stopHit && b.Open <= p.stop:
		return b.Open, ReasonStop, true
	case takeHit && b.Open >= p.target:
		return b.Open, ReasonTarget, true
	case stopHit:
		return p.stop, ReasonStop, true
	case takeHit:
		return p.target, ReasonTarget, true
	}
	return 0, "", false
}
