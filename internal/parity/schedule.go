package parity

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scheduler re-runs the fixtures on a cron schedule so a long-running server
// notices drift as soon as someone edits a fixture or the engine changes.
type Scheduler struct {
	cron *cron.Cron
	dir  string
	fn   func(*Report, error, time.Time)
}

// NewScheduler registers a parity run over dir on spec. Standard five-field
// specs and descriptors such as "@hourly" or "@every 10m" are accepted. fn is
// called after each run.
func NewScheduler(ctx context.Context, spec, dir string, fn func(*Report, error, time.Time)) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		dir:  dir,
		fn:   fn,
	}

	_, err := s.cron.AddFunc(spec, func() { s.runOnce(ctx) })
	if err != nil {
		return nil, eris.Wrapf(err, "parity: invalid schedule %q", spec)
	}

	zap.L().Info("parity run scheduled",
		zap.String("schedule", spec),
		zap.String("dir", dir),
	)
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a run in progress.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow executes one run immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := RunDir(ctx, s.dir)
	at := time.Now()

	log := zap.L().With(zap.String("dir", s.dir))
	switch {
	case err != nil:
		log.Error("scheduled parity run failed", zap.Error(err))
	case !report.Passed():
		log.Warn("scheduled parity run found mismatches",
			zap.Int("compared", report.Compared()),
			zap.Strings("failures", report.Failures),
		)
	default:
		log.Info("scheduled parity run passed", zap.Int("compared", report.Compared()))
	}

	if s.fn != nil {
		s.fn(report, err, at)
	}
}
