package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/pipeline"
	"github.com/rustyeddy/tradeplan/result"
	"github.com/rustyeddy/tradeplan/strategy"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a plan for one symbol",
	Long: `Backtest replays a trading plan over the symbol's daily bars, stores the
result and applies the simulated trades to the position tracker.

Without --strategy the default plan is composed from the --report files.

Examples:
  tradeplan backtest -s TSLA
  tradeplan backtest -s TSLA -f plans/tsla.yaml --from 2024-01-01 --to 2024-06-30
  tradeplan backtest -s AAPL -r technical=reports/aapl_tech.json --json`,
	RunE: runBacktest,
}

var (
	btSymbol   string
	btStrategy string
	btFrom     string
	btTo       string
	btCapital  float64
	btReports  []string
	btRef      string
	btJSON     bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "s", "", "ticker symbol (required)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "f", "", "strategy descriptor file (JSON or YAML)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "first bar date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "last bar date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 0, "starting capital (overrides config)")
	backtestCmd.Flags().StringArrayVarP(&btReports, "report", "r", nil, "analysis report as name=path.json (repeatable)")
	backtestCmd.Flags().StringVar(&btRef, "ref", "", "strategy reference for tracked positions (default: start date)")
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print the result as JSON")

	backtestCmd.MarkFlagRequired("symbol")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if btCapital > 0 {
		cfg.Capital = btCapital
	}

	job := pipeline.Job{Symbol: strings.ToUpper(btSymbol), Ref: btRef}
	if job.From, job.To, err = parseRange(btFrom, btTo); err != nil {
		return err
	}
	if job.Reports, err = loadReports(btReports); err != nil {
		return err
	}
	if btStrategy != "" {
		d, err := strategy.LoadFile(btStrategy)
		if err != nil {
			return err
		}
		job.Strategy = &d
	}

	st, err := openStores(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker, closeTracker, err := openTracker(cfg.Portfolio)
	if err != nil {
		return err
	}
	defer closeTracker()

	out := newRunner(cfg, st, tracker).Run(cmd.Context(), job)
	if out.Err != nil {
		return out.Err
	}

	w := cmd.OutOrStdout()
	if btJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Result)
	}

	result.Print(w, out.Result)
	if out.Fallback {
		fmt.Fprintln(w, "\nNote: no mechanical rule could be read from the plan; the run is buy-and-hold.")
	}
	fmt.Fprintf(w, "\nPositions updated: %d\n", len(out.Positions))
	return nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if from != "" {
		if f, err = market.ParseTime(from); err != nil {
			return f, t, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if t, err = market.ParseTime(to); err != nil {
			return f, t, fmt.Errorf("--to: %w", err)
		}
	}
	if !f.IsZero() && !t.IsZero() && t.Before(f) {
		return f, t, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return f, t, nil
}

// loadReports reads name=path pairs in the order given.
func loadReports(args []string) ([]pipeline.NamedReport, error) {
	var out []pipeline.NamedReport
	for _, s := range args {
		name, path, ok := strings.Cut(s, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("report %q: want name=path", s)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", name, err)
		}
		var r strategy.Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("report %s: %w", name, err)
		}
		out = append(out, pipeline.NamedReport{Name: name, Report: r})
	}
	return out, nil
}
