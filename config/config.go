package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/tradeplan/market"
	"gopkg.in/yaml.v3"
)

// Config is the complete tradeplan configuration.
type Config struct {
	Capital   float64         `json:"capital" yaml:"capital"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Portfolio PortfolioConfig `json:"portfolio" yaml:"portfolio"`
	API       APIConfig       `json:"api" yaml:"api"`
	Run       RunConfig       `json:"run" yaml:"run"`
}

// DataConfig locates historical bars.
type DataConfig struct {
	Dir string `json:"dir" yaml:"dir"` // one <SYMBOL>.csv per symbol
}

// StorageConfig says where results go. Empty fields disable that store.
type StorageConfig struct {
	JSONDir    string `json:"json_dir,omitempty" yaml:"json_dir,omitempty"`
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	CSVDir     string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	OrgDir     string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

// PortfolioConfig selects the position store.
type PortfolioConfig struct {
	Store string `json:"store" yaml:"store"` // "memory" or "sqlite"
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
}

type APIConfig struct {
	Listen      string   `json:"listen" yaml:"listen"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// RunConfig drives the batch pipeline.
type RunConfig struct {
	Symbols      []string `json:"symbols" yaml:"symbols"`
	Workers      int      `json:"workers" yaml:"workers"`
	From         string   `json:"from,omitempty" yaml:"from,omitempty"` // YYYY-MM-DD or RFC3339
	To           string   `json:"to,omitempty" yaml:"to,omitempty"`
	StrategyFile string   `json:"strategy_file,omitempty" yaml:"strategy_file,omitempty"`
}

// Range parses From and To. Zero times mean unbounded.
func (r RunConfig) Range() (from, to time.Time, err error) {
	if r.From != "" {
		if from, err = market.ParseTime(r.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("run.from: %w", err)
		}
	}
	if r.To != "" {
		if to, err = market.ParseTime(r.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("run.to: %w", err)
		}
	}
	return from, to, nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	switch c.Portfolio.Store {
	case "memory":
	case "sqlite":
		if c.Portfolio.Path == "" {
			return fmt.Errorf("portfolio.path required for sqlite store")
		}
	default:
		return fmt.Errorf("portfolio.store must be 'memory' or 'sqlite'")
	}
	if c.API.Listen == "" {
		return fmt.Errorf("api.listen is required")
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative")
	}
	for _, s := range c.Run.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("run.symbols must not contain blanks")
		}
	}
	from, to, err := c.Run.Range()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("run.to must not be before run.from")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Capital: 10_000,
		Data: DataConfig{
			Dir: "./data/bars",
		},
		Storage: StorageConfig{
			JSONDir:    "./data/results",
			SQLitePath: "./data/tradeplan.db",
		},
		Portfolio: PortfolioConfig{
			Store: "sqlite",
			Path:  "./data/positions.db",
		},
		API: APIConfig{
			Listen:      ":8080",
			CORSOrigins: []string{"*"},
		},
		Run: RunConfig{
			Symbols: []string{"TSLA"},
			Workers: 4,
		},
	}
}
