package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/portfolio"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List and manage tracked positions",
	Long: `List tracked positions, or open, close and mark them by hand.

Subcommands:
  open        - Open a position
  close       - Close the open position for a symbol
  unrealized  - Mark open positions at a price

Examples:
  tradeplan positions --status open
  tradeplan positions open TSLA 182.5 10 --ref manual
  tradeplan positions close TSLA 190 --ref manual
  tradeplan positions unrealized TSLA 185`,
	Args: cobra.NoArgs,
	RunE: runPositions,
}

var positionsOpenCmd = &cobra.Command{
	Use:   "open <symbol> <price> <quantity>",
	Short: "Open a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runPositionsOpen,
}

var positionsCloseCmd = &cobra.Command{
	Use:   "close <symbol> <price>",
	Short: "Close the open position for a symbol",
	Args:  cobra.ExactArgs(2),
	RunE:  runPositionsClose,
}

var positionsUnrealizedCmd = &cobra.Command{
	Use:   "unrealized <symbol> <price>",
	Short: "Mark open positions at a price",
	Args:  cobra.ExactArgs(2),
	RunE:  runPositionsUnrealized,
}

var (
	posStatus string
	posRef    string
	posAt     string
)

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.AddCommand(positionsOpenCmd)
	positionsCmd.AddCommand(positionsCloseCmd)
	positionsCmd.AddCommand(positionsUnrealizedCmd)

	positionsCmd.Flags().StringVar(&posStatus, "status", "", "filter by status (open, closed)")
	for _, c := range []*cobra.Command{positionsOpenCmd, positionsCloseCmd} {
		c.Flags().StringVar(&posRef, "ref", "", "strategy reference")
		c.Flags().StringVar(&posAt, "at", "", "fill time (YYYY-MM-DD or RFC3339, default now)")
	}
}

func withTracker(fn func(*portfolio.Tracker) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tracker, closeTracker, err := openTracker(cfg.Portfolio)
	if err != nil {
		return err
	}
	defer closeTracker()
	return fn(tracker)
}

func runPositions(cmd *cobra.Command, args []string) error {
	status := portfolio.Status(posStatus)
	switch status {
	case "", portfolio.StatusOpen, portfolio.StatusClosed:
	default:
		return fmt.Errorf("--status must be 'open' or 'closed'")
	}

	return withTracker(func(tr *portfolio.Tracker) error {
		positions, err := tr.List(cmd.Context(), status)
		if err != nil {
			return err
		}
		realized, err := tr.RealizedPnL(cmd.Context())
		if err != nil {
			return err
		}

		p := message.NewPrinter(language.English)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSYMBOL\tREF\tSTATUS\tENTRY\tQTY\tEXIT\tPNL")
		for _, pos := range positions {
			exit, pnl := "-", "-"
			if !pos.IsOpen() {
				exit = p.Sprintf("%s @ %.2f", pos.ExitTime.Format(time.DateOnly), pos.ExitPrice)
				pnl = p.Sprintf("%.2f", pos.RealizedPnL)
			}
			p.Fprintf(tw, "%s\t%s\t%s\t%s\t%s @ %.2f\t%.4f\t%s\t%s\n",
				pos.ID, pos.Symbol, pos.StrategyRef, pos.Status,
				pos.EntryTime.Format(time.DateOnly), pos.EntryPrice, pos.Quantity, exit, pnl)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		p.Fprintf(cmd.OutOrStdout(), "\n%d positions, realized PnL %.2f\n", len(positions), realized)
		return nil
	})
}

func runPositionsOpen(cmd *cobra.Command, args []string) error {
	price, err := positiveArg("price", args[1])
	if err != nil {
		return err
	}
	qty, err := positiveArg("quantity", args[2])
	if err != nil {
		return err
	}
	at, err := fillTime(posAt)
	if err != nil {
		return err
	}

	return withTracker(func(tr *portfolio.Tracker) error {
		pos, err := tr.Open(cmd.Context(), strings.ToUpper(args[0]), at, price, qty, posRef)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s %s %.4f @ %.2f\n", pos.ID, pos.Symbol, pos.Quantity, pos.EntryPrice)
		return nil
	})
}

func runPositionsClose(cmd *cobra.Command, args []string) error {
	price, err := positiveArg("price", args[1])
	if err != nil {
		return err
	}
	at, err := fillTime(posAt)
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(args[0])

	return withTracker(func(tr *portfolio.Tracker) error {
		var pos portfolio.Position
		if posRef != "" {
			pos, err = tr.CloseRef(cmd.Context(), symbol, posRef, at, price)
		} else {
			pos, err = tr.Close(cmd.Context(), symbol, at, price)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "closed %s %s @ %.2f, realized %.2f\n", pos.ID, pos.Symbol, pos.ExitPrice, pos.RealizedPnL)
		return nil
	})
}

func runPositionsUnrealized(cmd *cobra.Command, args []string) error {
	price, err := positiveArg("price", args[1])
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(args[0])

	return withTracker(func(tr *portfolio.Tracker) error {
		pnl, err := tr.UnrealizedPnL(cmd.Context(), symbol, price)
		if err != nil {
			return err
		}
		message.NewPrinter(language.English).Fprintf(cmd.OutOrStdout(), "%s unrealized PnL at %.2f: %.2f\n", symbol, price, pnl)
		return nil
	})
}

func positiveArg(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, s)
	}
	return v, nil
}

func fillTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := market.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}
