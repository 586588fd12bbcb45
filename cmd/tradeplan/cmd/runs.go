package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/tradeplan/journal"
	"github.com/rustyeddy/tradeplan/result"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query journaled backtest runs",
	Long: `Query backtest runs recorded in the SQLite journal (storage.sqlite_path).

Subcommands:
  list   - List runs, optionally for one symbol
  show   - Show one run
  trade  - Show one trade by ID
  day    - List trades closed on a specific day

Examples:
  tradeplan runs list --symbol TSLA
  tradeplan runs show 01HV3K8Q5T9YB4N2M7C6XWZJRA --org
  tradeplan runs day 2024-01-15`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsTrade,
}

var runsDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDay,
}

var (
	runsSymbol string
	runsOrg    bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsTradeCmd)
	runsCmd.AddCommand(runsDayCmd)

	runsListCmd.Flags().StringVar(&runsSymbol, "symbol", "", "only runs for this symbol")
	runsShowCmd.Flags().BoolVar(&runsOrg, "org", false, "print as an Org-mode entry")
}

func withRuns(fn func(*journal.SQLiteJournal) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is not set")
	}
	j, err := journal.NewSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	return withRuns(func(j *journal.SQLiteJournal) error {
		runs, err := j.ListRuns(cmd.Context(), runsSymbol)
		if err != nil {
			return fmt.Errorf("query runs: %w", err)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSYMBOL\tSTART\tEND\tTRADES\tRETURN\tMAX DD\tWIN RATE")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f%%\t%.2f%%\t%.0f%%\n",
				r.RunID, r.Symbol, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly),
				r.Trades, r.NetReturn*100, r.MaxDrawdown*100, r.WinRate*100)
		}
		return tw.Flush()
	})
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	return withRuns(func(j *journal.SQLiteJournal) error {
		r, err := j.GetResult(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if runsOrg {
			s, err := journal.FormatResultOrg(r)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), s)
			return nil
		}
		result.Print(cmd.OutOrStdout(), r)
		return nil
	})
}

func runRunsTrade(cmd *cobra.Command, args []string) error {
	return withRuns(func(j *journal.SQLiteJournal) error {
		rec, err := j.GetTrade(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get trade: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
		return nil
	})
}

func runRunsDay(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(time.UTC, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	return withRuns(func(j *journal.SQLiteJournal) error {
		recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
		for _, rec := range recs {
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
		}
		return nil
	})
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
