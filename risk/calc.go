// Package risk sizes positions against a capital base.
package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// FractionUnits buys fraction of capital worth of the instrument at price.
func FractionUnits(capital, fraction, price float64) float64 {
	if capital <= 0 || fraction <= 0 || price <= 0 {
		return 0
	}
	return capital * fraction / price
}

// RiskUnits sizes a position so that a move from entry to stop loses
// riskPct of capital. The result never exceeds what capital can buy.
func RiskUnits(capital, riskPct, entry, stop float64) float64 {
	if capital <= 0 || riskPct <= 0 || entry <= 0 {
		return 0
	}
	dist := abs(entry - stop)
	if dist == 0 {
		return 0
	}
	units := capital * riskPct / dist
	return math.Min(units, capital/entry)
}

// TargetFromR returns the long take-profit price r risk-multiples above entry.
func TargetFromR(entry, stop, r float64) float64 {
	return entry + r*abs(entry-stop)
}
