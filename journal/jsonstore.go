package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/tradeplan/result"
)

// CategoryBacktest is the JSONStore category backtest results go in.
const CategoryBacktest = "backtest"

var ErrBadKey = errors.New("bad storage key")

// JSONStore writes one indented JSON file per record at
// <Dir>/<symbol>/<date>_<category>.json.
type JSONStore struct {
	Dir string
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONStore{Dir: dir}, nil
}

func (s *JSONStore) path(category, symbol, date string) (string, error) {
	for _, part := range []string{category, symbol, date} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrBadKey, part)
		}
	}
	return filepath.Join(s.Dir, symbol, date+"_"+category+".json"), nil
}

// Save writes v and returns the file path. Files are replaced atomically.
func (s *JSONStore) Save(category, symbol, date string, v any) (string, error) {
	path, err := s.path(category, symbol, date)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// Load decodes a record written by Save into v.
func (s *JSONStore) Load(category, symbol, date string, v any) error {
	path, err := s.path(category, symbol, date)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s %s %s", ErrNotFound, category, symbol, date)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *JSONStore) RecordResult(ctx context.Context, r result.BacktestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	symbol, date := r.Key()
	_, err := s.Save(CategoryBacktest, symbol, date, r)
	return err
}

// GetResult loads the backtest result stored for (symbol, date).
func (s *JSONStore) GetResult(symbol, date string) (result.BacktestResult, error) {
	var r result.BacktestResult
	if err := s.Load(CategoryBacktest, symbol, date, &r); err != nil {
		return result.BacktestResult{}, err
	}
	return r, nil
}

func (s *JSONStore) Close() error { return nil }
