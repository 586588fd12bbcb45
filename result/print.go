package result

import (
	"fmt"
	"io"
	"time"
)

// Print writes a human readable summary of r.
func Print(w io.Writer, r BacktestResult) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	if r.DataSource != "" {
		fmt.Fprintf(w, "Data Source:   %s\n", r.DataSource)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.DateRange.Start.Format(time.DateOnly))
	fmt.Fprintf(w, "End:           %s\n", r.DateRange.End.Format(time.DateOnly))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Entry:         %s\n", r.StrategyApplied.EntryCriteria)
	fmt.Fprintf(w, "Sizing:        %s\n", r.StrategyApplied.PositionSizing)
	fmt.Fprintf(w, "Risk:          %s\n", r.StrategyApplied.RiskManagement)
	fmt.Fprintf(w, "Exit:          %s\n", r.StrategyApplied.ExitStrategy)
	fmt.Fprintf(w, "Management:    %s\n", r.StrategyApplied.TradeManagement)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Stats.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Stats.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Stats.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.Stats.WinRate*100)
	if r.Stats.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.Stats.ProfitFactor)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	if r.Capital > 0 {
		fmt.Fprintf(w, "Start Balance: %.2f\n", r.Capital)
		fmt.Fprintf(w, "End Balance:   %.2f\n", r.Capital*(1+r.NetReturn))
	}
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.NetReturn*100)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdown*100)

	if len(r.TradeLog) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trades")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, t := range r.TradeLog {
			fmt.Fprintf(w, "%s %.2f -> %s %.2f  pnl %.2f  %s\n",
				t.EntryTime.Format(time.DateOnly), t.EntryPrice,
				t.ExitTime.Format(time.DateOnly), t.ExitPrice,
				t.PnL, t.Reason)
		}
	}

	fmt.Fprintln(w)
}
