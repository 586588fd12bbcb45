package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradeplan/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve positions and stored results over HTTP",
	Long: `Serve starts a read-only HTTP API.

Routes:
  GET /health
  GET /positions?status=open|closed
  GET /positions/:symbol/unrealized?price=
  GET /pnl
  GET /results/:symbol/:date
  GET /runs?symbol=
  GET /runs/:id

Example:
  tradeplan serve -c tradeplan.yaml --listen :9090`,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides api.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := cfg.API.Listen
	if serveListen != "" {
		addr = serveListen
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

	srv := &api.Server{
		Tracker:     tracker,
		CORSOrigins: cfg.API.CORSOrigins,
		Logger:      log.New(os.Stderr, "tradeplan: ", log.LstdFlags),
	}
	if st.results != nil {
		srv.Results = st.results
	}
	if st.runs != nil {
		srv.Runs = st.runs
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}
