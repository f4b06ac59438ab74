/*
	Package batch drives operations across many runs with per-run failure
	isolation.  MapRuns is the orchestrator: a bounded worker pool at run
	granularity whose result map is keyed by run name, with exactly one
	entry per input run regardless of completion order.  Copy, move,
	delete, and sync are built on the resolver plus target-URI templates.
*/

package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/tomoverse/tomocat/catalog"
	"github.com/tomoverse/tomocat/tomo"
)

// RunFunc is the per-run operation fanned out by MapRuns.
type RunFunc func(ctx context.Context, run *catalog.Run) (interface{}, error)

// RunResult is one run's outcome: a value or the error (or recovered
// panic) that run produced.
type RunResult struct {
	Value interface{}
	Err   error
}

// Report aggregates a MapRuns invocation.
type Report struct {
	Results   map[string]RunResult
	Succeeded int
	Failed    int
}

// MapRuns executes fn once per run on up to workers concurrent goroutines.
// One run's failure or panic never aborts or blocks other runs.  With
// workers == 1 execution is strictly sequential in input order, which is
// required for backends that are not safe for concurrent use.
func MapRuns(ctx context.Context, runs []*catalog.Run, workers int, showProgress bool, fn RunFunc) *Report {
	if workers < 1 {
		workers = 1
	}
	timelog := tomo.NewTimeLog()
	report := &Report{Results: make(map[string]RunResult, len(runs))}

	if workers == 1 {
		for i, run := range runs {
			report.Results[run.Name()] = callRun(ctx, fn, run)
			if showProgress {
				tomo.Infof("Completed run %q (%d/%d)\n", run.Name(), i+1, len(runs))
			}
		}
	} else {
		sem := semaphore.NewWeighted(int64(workers))
		var mu sync.Mutex
		var wg sync.WaitGroup
		done := 0
		for _, run := range runs {
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				report.Results[run.Name()] = RunResult{Err: err}
				mu.Unlock()
				continue
			}
			wg.Add(1)
			go func(run *catalog.Run) {
				defer wg.Done()
				defer sem.Release(1)
				result := callRun(ctx, fn, run)
				mu.Lock()
				report.Results[run.Name()] = result
				done++
				if showProgress {
					tomo.Infof("Completed run %q (%d/%d)\n", run.Name(), done, len(runs))
				}
				mu.Unlock()
			}(run)
		}
		wg.Wait()
	}

	for _, result := range report.Results {
		if result.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	timelog.Infof("Mapped %d runs (%d workers, %d failed)", len(runs), workers, report.Failed)
	return report
}

// callRun isolates a single run's execution, converting panics into
// recorded errors so they cannot take down sibling runs.
func callRun(ctx context.Context, fn RunFunc, run *catalog.Run) (result RunResult) {
	defer func() {
		if p := recover(); p != nil {
			result = RunResult{Err: fmt.Errorf("panic in run %q: %v", run.Name(), p)}
		}
	}()
	value, err := fn(ctx, run)
	return RunResult{Value: value, Err: err}
}
