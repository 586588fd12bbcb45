package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInsufficientData is returned when fewer than two bars are available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnorderedBars is returned when bar timestamps are not strictly increasing.
	ErrUnorderedBars = errors.New("bars not strictly increasing in time")
)

// MinBars is the smallest series a simulation can trade on.
const MinBars = 2

// Bar is one OHLCV sample.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BodyFraction is the candle body as a fraction of the bar's range. A bar
// with no range has no body.
func (b Bar) BodyFraction() float64 {
	rng := b.High - b.Low
	if rng <= 0 {
		return 0
	}
	return math.Abs(b.Close-b.Open) / rng
}

// CheckBars verifies that bars form a usable series: at least MinBars,
// strictly increasing timestamps and positive prices.
func CheckBars(bars []Bar) error {
	if len(bars) < MinBars {
		return fmt.Errorf("%w: got %d bars, need at least %d", ErrInsufficientData, len(bars), MinBars)
	}
	for i, b := range bars {
		if b.Open <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): open and close must be positive", i, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d at %s", ErrUnorderedBars, i, b.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// HighestHigh returns the highest High in bars[from:to], clamped to the slice.
func HighestHigh(bars []Bar, from, to int) float64 {
	from, to = clamp(len(bars), from, to)
	var hi float64
	for i := from; i < to; i++ {
		if i == from || bars[i].High > hi {
			hi = bars[i].High
		}
	}
	return hi
}

// LowestLow returns the lowest Low in bars[from:to], clamped to the slice.
func LowestLow(bars []Bar, from, to int) float64 {
	from, to = clamp(len(bars), from, to)
	var lo float64
	for i := from; i < to; i++ {
		if i == from || bars[i].Low < lo {
			lo = bars[i].Low
		}
	}
	return lo
}

func clamp(n, from, to int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if to < from {
		to = from
	}
	return from, to
}
