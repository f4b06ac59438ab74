package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomoverse/tomocat/catalog"
)

func fixtureWithRuns(t *testing.T, n int) (*catalog.TestFixture, []*catalog.Run) {
	t.Helper()
	f, err := catalog.NewTestFixture()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("TS_%03d", i)
		run, err := f.Root.NewRun(name)
		if err != nil {
			t.Fatalf("NewRun(%s): %v", name, err)
		}
		if _, err := run.NewPicks("ribosome", "gapstop", "0"); err != nil {
			t.Fatalf("NewPicks: %v", err)
		}
	}
	runs, err := f.Root.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	return f, runs
}

// The same per-run computation must produce the same report whether runs
// are processed sequentially or on a worker pool.
func TestMapRunsSequentialAndConcurrentAgree(t *testing.T) {
	_, runs := fixtureWithRuns(t, 9)
	fn := func(ctx context.Context, run *catalog.Run) (interface{}, error) {
		picks, err := run.PicksList()
		if err != nil {
			return nil, err
		}
		return len(picks), nil
	}
	for _, workers := range []int{1, 4, 16} {
		report := MapRuns(context.Background(), runs, workers, false, fn)
		if len(report.Results) != len(runs) {
			t.Fatalf("workers=%d: %d results, want %d", workers, len(report.Results), len(runs))
		}
		if report.Succeeded != len(runs) || report.Failed != 0 {
			t.Errorf("workers=%d: %d/%d succeeded/failed", workers, report.Succeeded, report.Failed)
		}
		for _, run := range runs {
			result, found := report.Results[run.Name()]
			if !found {
				t.Errorf("workers=%d: no result for run %q", workers, run.Name())
				continue
			}
			if result.Err != nil || result.Value != 1 {
				t.Errorf("workers=%d: run %q result (%v, %v), want (1, nil)", workers, run.Name(), result.Value, result.Err)
			}
		}
	}
}

// One failing or panicking run never affects its siblings.
func TestMapRunsIsolatesFailures(t *testing.T) {
	_, runs := fixtureWithRuns(t, 6)
	boom := errors.New("boom")
	fn := func(ctx context.Context, run *catalog.Run) (interface{}, error) {
		switch run.Name() {
		case "TS_002":
			return nil, boom
		case "TS_004":
			panic("corrupted payload")
		}
		return run.Name(), nil
	}
	for _, workers := range []int{1, 3} {
		report := MapRuns(context.Background(), runs, workers, false, fn)
		if report.Succeeded != 4 || report.Failed != 2 {
			t.Fatalf("workers=%d: %d/%d succeeded/failed, want 4/2", workers, report.Succeeded, report.Failed)
		}
		if !errors.Is(report.Results["TS_002"].Err, boom) {
			t.Errorf("workers=%d: TS_002 error %v, want boom", workers, report.Results["TS_002"].Err)
		}
		if report.Results["TS_004"].Err == nil {
			t.Errorf("workers=%d: panic should surface as an error", workers)
		}
		if report.Results["TS_005"].Value != "TS_005" {
			t.Errorf("workers=%d: sibling result lost: %v", workers, report.Results["TS_005"])
		}
	}
}

func TestMapRunsEmpty(t *testing.T) {
	report := MapRuns(context.Background(), nil, 4, false, func(ctx context.Context, run *catalog.Run) (interface{}, error) {
		return nil, nil
	})
	if len(report.Results) != 0 || report.Succeeded != 0 || report.Failed != 0 {
		t.Errorf("empty input produced %+v", report)
	}
}
