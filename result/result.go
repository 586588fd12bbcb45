// Package result packages a simulation run into a persistable record.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradeplan/ledger"
	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/pkg/id"
	"github.com/rustyeddy/tradeplan/sim"
	"github.com/rustyeddy/tradeplan/strategy"
)

var (
	// ErrOutOfRangeTrade is returned when a trade falls outside the
	// result's date range.
	ErrOutOfRangeTrade = errors.New("trade outside date range")

	ErrInvalidRange = errors.New("invalid date range")
)

// DateRange is inclusive on both ends. It encodes as a two element array.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{formatDate(r.Start), formatDate(r.End)})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("date_range: %w", err)
	}
	start, err := market.ParseTime(pair[0])
	if err != nil {
		return err
	}
	end, err := market.ParseTime(pair[1])
	if err != nil {
		return err
	}
	r.Start, r.End = start, end
	return nil
}

// formatDate writes midnight UTC as a plain date.
func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// Stats are trade statistics carried next to the headline metrics.
type Stats struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
	ProfitFactor float64 `json:"profit_factor"`
}

// BacktestResult is the stored record of one run. Field names are a
// contract with the storage and reporting tools.
type BacktestResult struct {
	RunID           string              `json:"run_id"`
	Symbol          string              `json:"symbol"`
	DateRange       DateRange           `json:"date_range"`
	NetReturn       float64             `json:"net_return"`
	MaxDrawdown     float64             `json:"max_drawdown"`
	TradeLog        []ledger.TradeRow   `json:"trade_log"`
	EquityCurve     []sim.EquityPoint   `json:"equity_curve"`
	StrategyApplied strategy.Descriptor `json:"strategy_applied"`
	AgentInputs     Inputs              `json:"agent_inputs"`
	DataSource      string              `json:"data_source,omitempty"`
	Capital         float64             `json:"capital,omitempty"`
	Stats           Stats               `json:"stats"`
}

// Key is the (symbol, date) pair results are stored under.
func (r BacktestResult) Key() (symbol, date string) {
	return r.Symbol, r.DateRange.Start.UTC().Format(time.DateOnly)
}

// Input is everything Assemble packages.
type Input struct {
	RunID       string // generated when empty
	Symbol      string
	Range       DateRange
	Strategy    strategy.Descriptor
	Metrics     ledger.Metrics
	Curve       []sim.EquityPoint
	AgentInputs Inputs
	DataSource  string
	Capital     float64
}

// Assemble checks that every trade lies inside in.Range and packages the
// run. Nothing in in is modified or shared with the result.
func Assemble(in Input) (BacktestResult, error) {
	if in.Range.End.Before(in.Range.Start) {
		return BacktestResult{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange,
			formatDate(in.Range.Start), formatDate(in.Range.End))
	}

	for i, row := range in.Metrics.TradeLog {
		for _, t := range []time.Time{row.EntryTime, row.ExitTime} {
			if !in.Range.Contains(t) {
				return BacktestResult{}, fmt.Errorf("%w: trade %d at %s not in [%s, %s]", ErrOutOfRangeTrade,
					i, t.Format(time.RFC3339), formatDate(in.Range.Start), formatDate(in.Range.End))
			}
		}
	}

	runID := in.RunID
	if runID == "" {
		runID = id.New()
	}

	inputs := in.AgentInputs.Clone()
	if inputs == nil {
		inputs = Inputs{}
	}

	m := in.Metrics
	return BacktestResult{
		RunID:           runID,
		Symbol:          in.Symbol,
		DateRange:       in.Range,
		NetReturn:       m.NetReturn,
		MaxDrawdown:     m.MaxDrawdown,
		TradeLog:        append(make([]ledger.TradeRow, 0, len(m.TradeLog)), m.TradeLog...),
		EquityCurve:     append(make([]sim.EquityPoint, 0, len(in.Curve)), in.Curve...),
		StrategyApplied: in.Strategy.Clone(),
		AgentInputs:     inputs,
		DataSource:      in.DataSource,
		Capital:         in.Capital,
		Stats: Stats{
			Trades:       m.Trades,
			Wins:         m.Wins,
			Losses:       m.Losses,
			WinRate:      m.WinRate,
			GrossProfit:  m.GrossProfit,
			GrossLoss:    m.GrossLoss,
			ProfitFactor: m.ProfitFactor,
		},
	}, nil
}
