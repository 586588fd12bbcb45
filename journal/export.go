package journal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rustyeddy/tradeplan/result"
)

// CSVDir exports every recorded result as a pair of CSV files in the
// directory it names.
type CSVDir string

func (d CSVDir) RecordResult(ctx context.Context, r result.BacktestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := WriteCSV(string(d), r)
	return err
}

func (d CSVDir) Close() error { return nil }

// OrgDir writes every recorded result as <symbol>_<date>_<run_id>.org in
// the directory it names.
type OrgDir string

func (d OrgDir) RecordResult(ctx context.Context, r result.BacktestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return err
	}
	symbol, date := r.Key()
	return WriteResultOrg(filepath.Join(string(d), symbol+"_"+date+"_"+r.RunID+".org"), r)
}

func (d OrgDir) Close() error { return nil }
