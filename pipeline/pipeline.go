// Package pipeline runs the plan, simulate, summarize, store and track
// sequence for one or many symbols.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rustyeddy/tradeplan/journal"
	"github.com/rustyeddy/tradeplan/ledger"
	"github.com/rustyeddy/tradeplan/market"
	"github.com/rustyeddy/tradeplan/portfolio"
	"github.com/rustyeddy/tradeplan/result"
	"github.com/rustyeddy/tradeplan/sim"
	"github.com/rustyeddy/tradeplan/strategy"
	"golang.org/x/sync/errgroup"
)

// NamedReport is one upstream analysis report.
type NamedReport struct {
	Name   string
	Report strategy.Report
}

// Job is one symbol to backtest.
type Job struct {
	Symbol string
	From   time.Time // zero means from the first bar
	To     time.Time // zero means to the last bar

	// Strategy is the plan to test. When nil the default plan is composed
	// from Reports.
	Strategy *strategy.Descriptor
	Reports  []NamedReport

	// Ref tags the positions this run creates. Defaults to the start date.
	Ref string
}

// Outcome is the result of one job. Err is set when the job failed. A
// failure before storage leaves nothing stored; a tracker failure happens
// after Journal.RecordResult, so the result is stored but no position was
// recorded.
type Outcome struct {
	Symbol    string
	Result    result.BacktestResult
	Positions []portfolio.Position
	Fallback  bool
	Err       error
}

// Runner wires a bar source to the simulator and the optional stores.
type Runner struct {
	Source     market.Source
	Journal    journal.Journal    // nil skips storage
	Tracker    *portfolio.Tracker // nil skips portfolio updates
	Capital    float64
	DataSource string
	Workers    int
	Logger     *log.Logger
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Run executes one job.
func (r *Runner) Run(ctx context.Context, job Job) Outcome {
	out := Outcome{Symbol: job.Symbol}

	bars, err := r.Source.Bars(ctx, job.Symbol, job.From, job.To)
	if err != nil {
		out.Err = fmt.Errorf("%s: load bars: %w", job.Symbol, err)
		return out
	}

	d, err := r.descriptor(job, bars)
	if err != nil {
		out.Err = fmt.Errorf("%s: %w", job.Symbol, err)
		return out
	}

	run, err := sim.Simulate(job.Symbol, bars, d, sim.Options{Capital: r.Capital})
	if err != nil {
		out.Err = fmt.Errorf("%s: simulate: %w", job.Symbol, err)
		return out
	}
	out.Fallback = run.Fallback
	if run.Fallback {
		r.logger().Printf("%s: no mechanical rule in plan, using buy-and-hold", job.Symbol)
	}

	m, err := ledger.Summarize(run.Events, run.Curve)
	if err != nil {
		out.Err = fmt.Errorf("%s: summarize: %w", job.Symbol, err)
		return out
	}

	dr := result.DateRange{Start: job.From, End: job.To}
	if dr.Start.IsZero() {
		dr.Start = bars[0].Time
	}
	if dr.End.IsZero() {
		dr.End = bars[len(bars)-1].Time
	}

	inputs, err := agentInputs(job.Reports)
	if err != nil {
		out.Err = fmt.Errorf("%s: %w", job.Symbol, err)
		return out
	}

	res, err := result.Assemble(result.Input{
		Symbol:      job.Symbol,
		Range:       dr,
		Strategy:    d,
		Metrics:     m,
		Curve:       run.Curve,
		AgentInputs: inputs,
		DataSource:  r.DataSource,
		Capital:     run.Capital,
	})
	if err != nil {
		out.Err = fmt.Errorf("%s: assemble: %w", job.Symbol, err)
		return out
	}

	if r.Journal != nil {
		if err := r.Journal.RecordResult(ctx, res); err != nil {
			out.Err = fmt.Errorf("%s: store result: %w", job.Symbol, err)
			return out
		}
	}

	if r.Tracker != nil {
		ref := job.Ref
		if ref == "" {
			_, ref = res.Key()
		}
		positions, err := r.Tracker.Apply(ctx, ref, run.Events)
		if err != nil {
			out.Err = fmt.Errorf("%s: update portfolio: %w", job.Symbol, err)
			return out
		}
		out.Positions = positions
	}

	out.Result = res
	r.logger().Printf("%s: run %s, %d trades, return %.2f%%, max drawdown %.2f%%",
		job.Symbol, res.RunID, len(res.TradeLog), res.NetReturn*100, res.MaxDrawdown*100)
	return out
}

func (r *Runner) descriptor(job Job, bars []market.Bar) (strategy.Descriptor, error) {
	if job.Strategy != nil {
		return job.Strategy.Clone(), nil
	}

	reports := make(map[string]strategy.Report, len(job.Reports))
	for _, nr := range job.Reports {
		reports[nr.Name] = nr.Report
	}
	date := job.From
	if date.IsZero() {
		date = bars[0].Time
	}
	return strategy.Compose(job.Symbol, date, reports)
}

func agentInputs(reports []NamedReport) (result.Inputs, error) {
	in := result.Inputs{}
	for _, nr := range reports {
		raw, err := json.Marshal(nr.Report)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", nr.Name, err)
		}
		in = in.Set(nr.Name, raw)
	}
	return in, nil
}

// RunAll runs jobs on at most Workers goroutines. Outcomes are returned in
// job order; one failed job does not stop the others.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []Outcome {
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Symbol: job.Symbol, Err: err}
				return nil
			}
			outcomes[i] = r.Run(ctx, job)
			if outcomes[i].Err != nil {
				r.logger().Printf("job failed: %v", outcomes[i].Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
