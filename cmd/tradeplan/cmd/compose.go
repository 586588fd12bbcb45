package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/strategy"
	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose the default plan for a symbol",
	Long: `Compose writes the default strategy descriptor for a symbol. The given
reports are kept in its rationale.

Examples:
  tradeplan compose -s TSLA
  tradeplan compose -s TSLA -r technical=reports/tsla.json -o plans/tsla.json`,
	RunE: runCompose,
}

var (
	composeSymbol  string
	composeDate    string
	composeReports []string
	composeOutput  string
)

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringVarP(&composeSymbol, "symbol", "s", "", "ticker symbol (required)")
	composeCmd.Flags().StringVar(&composeDate, "date", "", "plan date (YYYY-MM-DD, default today)")
	composeCmd.Flags().StringArrayVarP(&composeReports, "report", "r", nil, "analysis report as name=path.json (repeatable)")
	composeCmd.Flags().StringVarP(&composeOutput, "output", "o", "", "write the descriptor to a file instead of stdout")

	composeCmd.MarkFlagRequired("symbol")
}

func runCompose(cmd *cobra.Command, args []string) error {
	date := time.Now().UTC()
	if composeDate != "" {
		t, err := market.ParseTime(composeDate)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		date = t
	}

	named, err := loadReports(composeReports)
	if err != nil {
		return err
	}
	reports := make(map[string]strategy.Report, len(named))
	for _, nr := range named {
		reports[nr.Name] = nr.Report
	}

	d, err := strategy.Compose(strings.ToUpper(composeSymbol), date, reports)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if composeOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(composeOutput, data, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote plan for %s: %s\n", d.Symbol, composeOutput)
	return nil
}
