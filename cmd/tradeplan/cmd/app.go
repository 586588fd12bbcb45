package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rustyeddy/tradeplan/config"
	"github.com/rustyeddy/tradeplan/journal"
	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/pipeline"
	"github.com/rustyeddy/tradeplan/portfolio"
)

// stores holds every result sink the config enables.
type stores struct {
	all     journal.Multi
	results *journal.JSONStore
	runs    *journal.SQLiteJournal
}

func openStores(cfg config.StorageConfig) (*stores, error) {
	s := &stores{}

	if cfg.JSONDir != "" {
		js, err := journal.NewJSONStore(cfg.JSONDir)
		if err != nil {
			return nil, fmt.Errorf("open json store: %w", err)
		}
		s.results = js
		s.all = append(s.all, js)
	}
	if cfg.SQLitePath != "" {
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		sj, err := journal.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		s.runs = sj
		s.all = append(s.all, sj)
	}
	if cfg.CSVDir != "" {
		s.all = append(s.all, journal.CSVDir(cfg.CSVDir))
	}
	if cfg.OrgDir != "" {
		s.all = append(s.all, journal.OrgDir(cfg.OrgDir))
	}
	return s, nil
}

func (s *stores) Close() error { return s.all.Close() }

func openTracker(cfg config.PortfolioConfig) (*portfolio.Tracker, func() error, error) {
	if cfg.Store == "memory" {
		return portfolio.NewTracker(portfolio.NewMemoryStore()), func() error { return nil }, nil
	}
	if err := ensureDir(cfg.Path); err != nil {
		return nil, nil, err
	}
	ps, err := portfolio.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open position store: %w", err)
	}
	return portfolio.NewTracker(ps), ps.Close, nil
}

func newRunner(cfg *config.Config, s *stores, tracker *portfolio.Tracker) *pipeline.Runner {
	return &pipeline.Runner{
		Source:     market.CSVSource{Dir: cfg.Data.Dir},
		Journal:    s.all,
		Tracker:    tracker,
		Capital:    cfg.Capital,
		DataSource: "csv:" + cfg.Data.Dir,
		Workers:    cfg.Run.Workers,
		Logger:     log.New(os.Stderr, "tradeplan: ", log.LstdFlags),
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
