// Package indicators provides streaming technical indicators over daily bars.
package indicators

import (
	"math"

	"github.com/rustyeddy/tradeplan/market"
)

// Indicator computes a single streaming value from bars.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value is meaningful.
	Ready() bool

	// Value returns the current value, 0 until Ready.
	Value() float64
}

// TrueRange is the largest of the bar's range and its gaps from the previous close.
func TrueRange(cur, prev market.Bar) float64 {
	return math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// Last feeds every bar to ind and returns its final value.
func Last(ind Indicator, bars []market.Bar) (float64, bool) {
	ind.Reset()
	for _, b := range bars {
		ind.Update(b)
	}
	return ind.Value(), ind.Ready()
}
