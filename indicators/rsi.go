package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradeplan/market"
)

// RSI is Wilder's Relative Strength Index of closes. Average gain and loss
// are seeded with the mean of the first period changes, so it needs
// period+1 bars.
type RSI struct {
	period    int
	prevClose float64
	hasPrev   bool
	count     int
	avgGain   float64
	avgLoss   float64
}

func NewRSI(period int) *RSI {
	if period <= 0 {
		panic("RSI period must be > 0")
	}
	return &RSI{period: period}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }
func (r *RSI) Warmup() int  { return r.period + 1 }

func (r *RSI) Reset() {
	*r = RSI{period: r.period}
}

func (r *RSI) Update(b market.Bar) {
	if !r.hasPrev {
		r.prevClose, r.hasPrev = b.Close, true
		return
	}
	change := b.Close - r.prevClose
	r.prevClose = b.Close

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	n := float64(r.period)
	if r.count < r.period {
		r.avgGain += gain / n
		r.avgLoss += loss / n
		r.count++
		return
	}
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
}

func (r *RSI) Ready() bool { return r.count >= r.period }

// Value is 100 when nothing was lost and 50 when nothing moved.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	switch {
	case r.avgLoss == 0 && r.avgGain == 0:
		return 50
	case r.avgLoss == 0:
		return 100
	}
	return 100 - 100/(1+r.avgGain/r.avgLoss)
}
