// Package underwriting is the application layer over the BOE engine, the gate
// state machine and the store. HTTP handlers and CLI commands call into a
// Service rather than the store directly.
package underwriting

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/metrics"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/internal/store"
)

var (
	// ErrUnderwritingLocked is returned when a deal's gate has not advanced.
	ErrUnderwritingLocked = eris.New("Full underwriting is locked")

	// ErrInvalidRequest marks caller errors such as a missing name.
	ErrInvalidRequest = eris.New("invalid request")
)

// Service coordinates evaluations, runs and gate bookkeeping.
type Service struct {
	store   store.Store
	metrics *metrics.Collector
	now     func() time.Time

	// portfolioWorkers bounds concurrent summary loads in Portfolio.
	portfolioWorkers int

	// retry governs writes that hit lock contention or a dropped connection.
	retry resilience.RetryConfig
}

// New returns a Service. m may be nil.
func New(st store.Store, m *metrics.Collector) *Service {
	return &Service{
		store:            st,
		metrics:          m,
		now:              func() time.Time { return time.Now().UTC() },
		portfolioWorkers: 8,
		retry:            resilience.DefaultRetryConfig(),
	}
}

// Store exposes the underlying store for health checks.
func (s *Service) Store() store.Store { return s.store }

// Evaluation is a stateless BOE result.
type Evaluation struct {
	Inputs   map[string]any    `json:"inputs"`
	Outputs  map[string]any    `json:"outputs"`
	Tests    []boe.TestOutcome `json:"tests"`
	Decision boe.Decision      `json:"decision"`
}

// Evaluate runs the engine on loosely typed inputs without persisting
// anything.
func (s *Service) Evaluate(ctx context.Context, raw map[string]any) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "underwriting: evaluate")
	}
	in := boe.ParseInput(raw)
	out, tests, dec := s.evaluate(in)
	return &Evaluation{
		Inputs:   in.Map(),
		Outputs:  out.Map(),
		Tests:    tests,
		Decision: dec,
	}, nil
}

func (s *Service) evaluate(in boe.Input) (boe.Output, []boe.TestOutcome, boe.Decision) {
	start := time.Now()
	out, tests, dec := boe.Evaluate(in)
	s.metrics.RecordEvaluation(dec.Status, tests, time.Since(start))
	return out, tests, dec
}

func (s *Service) recordEvents(events []*model.GateEvent) {
	for _, ev := range events {
		s.metrics.RecordGateEvent(ev.EventType)
	}
}

// RequestError is a caller mistake whose message is safe to show to the
// caller. It matches ErrInvalidRequest under errors.Is.
type RequestError struct {
	msg string
}

func (e *RequestError) Error() string { return e.msg }

// Is reports whether target is ErrInvalidRequest.
func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(format string, args ...any) error {
	return &RequestError{msg: fmt.Sprintf(format, args...)}
}

func (s *Service) writeRetry(op string) resilience.RetryConfig {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("underwriting", op)
	return cfg
}

func logger() *zap.Logger {
	return zap.L().With(zap.String("component", "underwriting"))
}
