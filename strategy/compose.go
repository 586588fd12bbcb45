package strategy

import (
	"encoding/json"
	"fmt"
	"time"
)

// Report is one analysis input (technical, news, social, macro ...).
type Report struct {
	Summary string         `json:"summary"`
	Details map[string]any `json:"details,omitempty"`
}

// Compose builds the default plan for symbol from the given reports. The
// reports are kept in the rationale; the plan text itself is fixed so the
// simulator always has a resolvable risk, exit and management rule.
func Compose(symbol string, date time.Time, reports map[string]Report) (Descriptor, error) {
	if symbol == "" {
		return Descriptor{}, fmt.Errorf("%w: missing symbol", ErrMalformedStrategy)
	}

	rationale := map[string]Report{}
	for _, name := range []string{"technical", "news", "social", "macro"} {
		rationale[name] = Report{}
	}
	for name, r := range reports {
		rationale[name] = r
	}
	raw, err := json.Marshal(rationale)
	if err != nil {
		return Descriptor{}, fmt.Errorf("compose rationale: %w", err)
	}

	return Descriptor{
		Symbol:          symbol,
		Date:            date.Format(time.DateOnly),
		EntryCriteria:   fmt.Sprintf("Enter long on %s when technicals support bullish trend.", symbol),
		PositionSizing:  "Risk 2% of capital per trade.",
		RiskManagement:  "Set stop-loss below recent swing low.",
		ExitStrategy:    "Take profit at 2R or when momentum fades.",
		TradeManagement: "Move stop to break-even after 1R gain.",
		Rationale:       raw,
	}, nil
}
