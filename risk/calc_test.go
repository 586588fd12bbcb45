package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFractionUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capital  float64
		fraction float64
		price    float64
		want     float64
	}{
		{"full", 10000, 1, 100, 100},
		{"quarter", 10000, 0.25, 50, 50},
		{"zero price", 10000, 1, 0, 0},
		{"zero capital", 0, 1, 100, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, FractionUnits(tt.capital, tt.fraction, tt.price), 1e-9)
		})
	}
}

func TestRiskUnits(t *testing.T) {
	t.Parallel()

	// 2% of 10,000 = 200 at risk; 5 per unit -> 40 units.
	assert.InDelta(t, 40.0, RiskUnits(10000, 0.02, 100, 95), 1e-9)

	// A very tight stop is capped at what capital can buy.
	assert.InDelta(t, 100.0, RiskUnits(10000, 0.02, 100, 99.9), 1e-9)

	assert.Zero(t, RiskUnits(10000, 0.02, 100, 100))
	assert.Zero(t, RiskUnits(10000, 0, 100, 95))
}

func TestTargetFromR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 110.0, TargetFromR(100, 95, 2), 1e-9)
	assert.InDelta(t, 100.0, TargetFromR(100, 100, 3), 1e-9)
}
