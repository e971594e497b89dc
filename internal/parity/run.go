package parity

import (
	"context"
	"maps"
	"runtime"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CaseResult is the outcome of one fixture.
type CaseResult struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Skipped  bool     `json:"skipped"`
	Failures []string `json:"failures"`
}

// Report collects the results of a fixture run in file order.
type Report struct {
	Dir      string       `json:"dir"`
	Cases    []CaseResult `json:"cases"`
	Failures []string     `json:"failures"`
}

// Passed reports whether every compared case matched.
func (r *Report) Passed() bool { return len(r.Failures) == 0 }

// Compared returns the number of cases that carried an expected block.
func (r *Report) Compared() int {
	n := 0
	for _, c := range r.Cases {
		if !c.Skipped {
			n++
		}
	}
	return n
}

// RunDir loads every fixture in dir and compares it with the default
// tolerance. Fixtures are compared concurrently; the report keeps file order.
func RunDir(ctx context.Context, dir string) (*Report, error) {
	return RunDirWithTolerance(ctx, dir, DefaultTolerance)
}

// RunDirWithTolerance is RunDir with an explicit tolerance.
func RunDirWithTolerance(ctx context.Context, dir string, tol Tolerance) (*Report, error) {
	files, err := ListFixtures(dir)
	if err != nil {
		return nil, err
	}

	results := make([]CaseResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return eris.Wrap(gctx.Err(), "parity: run cancelled")
			}

			c, err := LoadCase(path)
			if err != nil {
				return err
			}

			res := CaseResult{Name: c.Name, File: path}
			if c.Expected == nil {
				res.Skipped = true
			} else {
				res.Failures = CompareCase(c, tol)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Dir: dir, Cases: results, Failures: []string{}}
	for _, r := range results {
		report.Failures = append(report.Failures, r.Failures...)
	}

	zap.L().Debug("parity run complete",
		zap.String("dir", dir),
		zap.Int("cases", len(results)),
		zap.Int("compared", report.Compared()),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
