// Package montecarlo runs a batch of scenario.Records through
// scenario.Runner concurrently, aggregating pass/fail and separation
// statistics across the run. It backs the driver-layer "tests [N]"
// command-surface mode.
package montecarlo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arobi/sentinel/internal/clock"
	"github.com/arobi/sentinel/internal/scenario"
	"github.com/sirupsen/logrus"
)

// Config tunes a batch run.
type Config struct {
	AvoidCollisions bool
	Duration        time.Duration // simulated duration per scenario
	Workers         int           // 0 => 4
	Logger          *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Duration == 0 {
		c.Duration = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// BatchResult aggregates the outcome of running a set of records.
type BatchResult struct {
	TotalRuns      int
	CollisionRuns  int
	CollisionFree  int
	Results        []scenario.Result
	MinSeparation  float64 // minimum MinimalRelativeDistance observed across all runs
	MeanSeparation float64
	P95Separation  float64
}

// Runner executes scenario.Records concurrently, each against its own
// scenario.Runner (and therefore its own Clock), so runs never share
// mutable state.
type Runner struct {
	cfg Config
}

// NewRunner creates a batch Runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg.withDefaults()}
}

type task struct {
	index int
	rec   scenario.Record
}

type outcome struct {
	index  int
	result scenario.Result
}

// RunBatch runs every record in records, fanning work out across
// cfg.Workers goroutines, and returns the aggregated BatchResult. A
// cancelled ctx stops workers from starting new runs; a run already in
// progress stops at its next tick and its partial result is included.
func (r *Runner) RunBatch(ctx context.Context, records []scenario.Record) BatchResult {
	tasks := make(chan task, len(records))
	outcomes := make(chan outcome, len(records))

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go r.worker(ctx, &wg, tasks, outcomes)
	}

	for i, rec := range records {
		tasks <- task{index: i, rec: rec}
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]scenario.Result, len(records))
	seen := make([]bool, len(records))
	for o := range outcomes {
		results[o.index] = o.result
		seen[o.index] = true
	}

	return r.aggregate(results, seen)
}

func (r *Runner) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan task, outcomes chan<- outcome) {
	defer wg.Done()

	runner := scenario.NewRunner(clock.New(), r.cfg.Logger)
	for t := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res := runner.RunHeadless(ctx, t.rec, r.cfg.AvoidCollisions, r.cfg.Duration)
		outcomes <- outcome{index: t.index, result: res}
	}
}

func (r *Runner) aggregate(results []scenario.Result, seen []bool) BatchResult {
	out := BatchResult{MinSeparation: math.Inf(1)}

	var separations []float64
	for i, res := range results {
		if !seen[i] {
			continue
		}
		out.TotalRuns++
		out.Results = append(out.Results, res)
		if res.Collision {
			out.CollisionRuns++
		} else {
			out.CollisionFree++
		}
		if res.MinimalRelativeDistance < out.MinSeparation {
			out.MinSeparation = res.MinimalRelativeDistance
		}
		separations = append(separations, res.MinimalRelativeDistance)
	}

	if len(separations) == 0 {
		out.MinSeparation = 0
		return out
	}

	sort.Float64s(separations)
	sum := 0.0
	for _, s := range separations {
		sum += s
	}
	out.MeanSeparation = sum / float64(len(separations))
	out.P95Separation = percentile(separations, 0.95)

	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
