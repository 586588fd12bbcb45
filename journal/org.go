package journal

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/tradeplan/pkg/id"
	"github.com/rustyeddy/tradeplan/result"
)

var orgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"date":   func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"endBal": func(capital, ret float64) float64 { return capital * (1 + ret) },
}

var resultOrg = template.Must(template.New("backtest").Funcs(orgFuncs).Parse(ResultOrgTemplate))

type orgView struct {
	result.BacktestResult
	Created time.Time
}

// FormatResultOrg renders r as an Org-mode entry for a research journal.
func FormatResultOrg(r result.BacktestResult) (string, error) {
	v := orgView{BacktestResult: r}
	if ts, err := id.Time(r.RunID); err == nil {
		v.Created = ts
	}

	var buf bytes.Buffer
	if err := resultOrg.Execute(&buf, v); err != nil {
		return "", err
	}

	trades := TradeRecords(r)
	if len(trades) > 0 {
		buf.WriteString("\n** Trades\n")
		for _, t := range trades {
			buf.WriteString(demote(FormatTradeOrg(t)))
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

// WriteResultOrg writes the Org entry for r to path.
func WriteResultOrg(path string, r result.BacktestResult) error {
	s, err := FormatResultOrg(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

const ResultOrgTemplate = `* BACKTEST: {{.Symbol}} {{date .DateRange.Start}} .. {{date .DateRange.End}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .DataSource}}{{.DataSource}}{{else}}(dataset?){{end}}
:START_DATE:  {{date .DateRange.Start}}
:END_DATE:    {{date .DateRange.End}}
{{- if .Capital}}
:START_BAL:   {{printf "%.2f" .Capital}}
:END_BAL:     {{printf "%.2f" (endBal .Capital .NetReturn)}}
{{- end}}
:RETURN_PCT:  {{printf "%.2f" (mul100 .NetReturn)}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .MaxDrawdown)}}
:TRADES:      {{.Stats.Trades}}
:WINS:        {{.Stats.Wins}}
:LOSSES:      {{.Stats.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .Stats.WinRate)}}
:PROFIT_FAC:  {{if ne .Stats.ProfitFactor 0.0}}{{printf "%.2f" .Stats.ProfitFactor}}{{else}}(profit-factor?){{end}}
{{- if not .Created.IsZero}}
:CREATED:     [{{.Created.Format "2006-01-02 Mon 15:04"}}]
{{- end}}
:END:

** Strategy
| Field            | Plan |
|------------------+------|
| Entry            | {{.StrategyApplied.EntryCriteria}} |
| Sizing           | {{.StrategyApplied.PositionSizing}} |
| Risk             | {{.StrategyApplied.RiskManagement}} |
| Exit             | {{.StrategyApplied.ExitStrategy}} |
| Management       | {{.StrategyApplied.TradeManagement}} |

** Performance Summary
- Return:           *{{printf "%.2f" (mul100 .NetReturn)}}%*
- Max Drawdown:     *{{printf "%.2f" (mul100 .MaxDrawdown)}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .Stats.WinRate)}}%*
- Profit Factor:    *{{if ne .Stats.ProfitFactor 0.0}}{{printf "%.2f" .Stats.ProfitFactor}}{{else}}(profit-factor?){{end}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Stats.Wins}} |
| Losses  | {{.Stats.Losses}} |
| Total   | {{.Stats.Trades}} |
{{- if .AgentInputs}}

** Agent Inputs
{{- range .AgentInputs}}
- {{.Name}}
{{- end}}
{{- end}}
`

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Facts go in
// the PROPERTIES drawer, followed by empty narrative sections.
func FormatTradeOrg(t TradeRecord) string {
	open := t.OpenTime.UTC().Format(time.RFC3339)
	close := t.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s (%s)\n", t.Symbol, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":QUANTITY: %.4f\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.4f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.4f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", open)
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", close)
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// demote pushes every Org heading in s one level down.
func demote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "*") {
			lines[i] = "*" + l
		}
	}
	return strings.Join(lines, "\n")
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
