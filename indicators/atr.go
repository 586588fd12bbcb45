package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradeplan/market"
)

// ATR is the Average True Range with Wilder smoothing. The first value is
// the mean of the first period true ranges, so it needs period+1 bars.
type ATR struct {
	period  int
	prev    market.Bar
	hasPrev bool
	count   int
	sum     float64
	value   float64
}

func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{period: period}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }
func (a *ATR) Warmup() int  { return a.period + 1 }

func (a *ATR) Reset() {
	*a = ATR{period: a.period}
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev, a.hasPrev = b, true
		return
	}
	tr := TrueRange(b, a.prev)
	a.prev = b

	switch {
	case a.count < a.period:
		a.sum += tr
		a.count++
		if a.count == a.period {
			a.value = a.sum / float64(a.period)
		}
	default:
		a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
	}
}

func (a *ATR) Ready() bool { return a.count >= a.period }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.value
}
