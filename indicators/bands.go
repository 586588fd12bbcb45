package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradeplan/market"
)

// Bollinger holds Bollinger bands over closes: the period SMA plus and
// minus dev population standard deviations. Value is the middle band.
type Bollinger struct {
	period int
	dev    float64
	window []float64
	next   int
	count  int
}

func NewBollinger(period int, dev float64) *Bollinger {
	if period <= 0 {
		panic("Bollinger period must be > 0")
	}
	return &Bollinger{period: period, dev: dev, window: make([]float64, period)}
}

func (b *Bollinger) Name() string { return fmt.Sprintf("BB(%d,%g)", b.period, b.dev) }
func (b *Bollinger) Warmup() int  { return b.period }

func (b *Bollinger) Reset() {
	clear(b.window)
	b.next, b.count = 0, 0
}

func (b *Bollinger) Update(bar market.Bar) {
	b.window[b.next] = bar.Close
	b.next = (b.next + 1) % b.period
	if b.count < b.period {
		b.count++
	}
}

func (b *Bollinger) Ready() bool { return b.count >= b.period }

func (b *Bollinger) Value() float64 {
	mid, _ := b.stats()
	return mid
}

func (b *Bollinger) Upper() float64 {
	mid, sd := b.stats()
	return mid + b.dev*sd
}

func (b *Bollinger) Lower() float64 {
	mid, sd := b.stats()
	return mid - b.dev*sd
}

func (b *Bollinger) stats() (mean, sd float64) {
	if !b.Ready() {
		return 0, 0
	}
	for _, v := range b.window {
		mean += v
	}
	mean /= float64(b.period)
	var ss float64
	for _, v := range b.window {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(b.period))
}
