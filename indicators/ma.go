package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradeplan/market"
)

// SMA is a simple moving average of closes, or of volume when built with
// NewVolumeSMA.
type SMA struct {
	period int
	name   string
	field  func(market.Bar) float64
	window []float64
	next   int
	count  int
	sum    float64
}

func NewSMA(period int) *SMA {
	if period <= 0 {
		panic("SMA period must be > 0")
	}
	return &SMA{period: period, name: "SMA", field: closeOf, window: make([]float64, period)}
}

func NewVolumeSMA(period int) *SMA {
	s := NewSMA(period)
	s.name, s.field = "VolumeSMA", volumeOf
	return s
}

func closeOf(b market.Bar) float64  { return b.Close }
func volumeOf(b market.Bar) float64 { return b.Volume }

func (s *SMA) Name() string { return fmt.Sprintf("%s(%d)", s.name, s.period) }
func (s *SMA) Warmup() int  { return s.period }

func (s *SMA) Reset() {
	clear(s.window)
	s.next, s.count, s.sum = 0, 0, 0
}

func (s *SMA) Update(b market.Bar) {
	v := s.field(b)
	s.sum += v - s.window[s.next]
	s.window[s.next] = v
	s.next = (s.next + 1) % s.period
	if s.count < s.period {
		s.count++
	}
}

func (s *SMA) Ready() bool { return s.count >= s.period }

func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.sum / float64(s.period)
}

// EMA is an exponential moving average of closes, seeded with the SMA of
// the first period closes.
type EMA struct {
	period int
	alpha  float64
	seed   *SMA
	value  float64
	ready  bool
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{period: period, alpha: 2.0 / float64(period+1), seed: NewSMA(period)}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *EMA) Warmup() int  { return e.period }

func (e *EMA) Reset() {
	e.seed.Reset()
	e.value, e.ready = 0, false
}

func (e *EMA) Update(b market.Bar) {
	if !e.ready {
		e.seed.Update(b)
		if e.seed.Ready() {
			e.value = e.seed.Value()
			e.ready = true
		}
		return
	}
	e.value += e.alpha * (b.Close - e.value)
}

func (e *EMA) Ready() bool { return e.ready }

func (e *EMA) Value() float64 {
	if !e.ready {
		return 0
	}
	return e.value
}
