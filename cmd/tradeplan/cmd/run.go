package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rustyeddy/tradeplan/pipeline"
	"github.com/rustyeddy/tradeplan/strategy"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backtest every symbol listed in the config",
	Long: `Run backtests the run.symbols of the config file concurrently, using at
most run.workers goroutines. A failing symbol is reported and does not stop
the others.

When run.strategy_file is set the same plan is applied to every symbol,
otherwise the default plan is composed per symbol.

Example:
  tradeplan run -c tradeplan.yaml`,
	RunE: runRun,
}

var runSymbols []string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "override run.symbols (comma separated)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	symbols := cfg.Run.Symbols
	if len(runSymbols) > 0 {
		symbols = runSymbols
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to run")
	}

	from, to, err := cfg.Run.Range()
	if err != nil {
		return err
	}

	var base *strategy.Descriptor
	if cfg.Run.StrategyFile != "" {
		d, err := strategy.LoadFile(cfg.Run.StrategyFile)
		if err != nil {
			return err
		}
		base = &d
	}

	jobs := make([]pipeline.Job, 0, len(symbols))
	for _, s := range symbols {
		job := pipeline.Job{Symbol: strings.ToUpper(strings.TrimSpace(s)), From: from, To: to}
		if base != nil {
			d := base.Clone()
			d.Symbol = job.Symbol
			job.Strategy = &d
		}
		jobs = append(jobs, job)
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

	outcomes := newRunner(cfg, st, tracker).RunAll(cmd.Context(), jobs)

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tRUN\tTRADES\tRETURN\tMAX DD\tNOTE")
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%v\n", o.Symbol, o.Err)
			continue
		}
		note := ""
		if o.Fallback {
			note = "buy-and-hold"
		}
		r := o.Result
		p.Fprintf(tw, "%s\t%s\t%d\t%.2f%%\t%.2f%%\t%s\n",
			r.Symbol, r.RunID, len(r.TradeLog), r.NetReturn*100, r.MaxDrawdown*100, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(outcomes))
	}
	return nil
}
