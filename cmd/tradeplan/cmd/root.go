package cmd

import (
	"github.com/rustyeddy/tradeplan/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradeplan",
	Short: "Backtest trading plans and track the positions they take",
	Long: `Tradeplan turns a written trading plan into mechanical rules, replays them
over historical daily bars and records what happened.

It provides tools for:
  - Backtesting a plan for one symbol or a batch of symbols
  - Composing the default plan from analysis reports
  - Storing results as JSON, SQLite, CSV and Org files
  - Tracking open and closed positions with exact PnL
  - Serving positions and stored results over HTTP`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); built-in defaults when empty")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}
