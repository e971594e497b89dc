package underwriting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/gate"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/resilience"
	"github.com/sells-group/underwriting-cli/internal/store"
)

// RunView is a persisted run with its decision summary rebuilt from the
// stored tests.
type RunView struct {
	model.Run
	DecisionSummary boe.Decision `json:"decision_summary"`
}

func newRunView(r model.Run) RunView {
	d := boe.Decide(r.Outcomes())
	// The flags stored on the run are authoritative.
	d.HardVetoOK = r.HardVetoOK
	d.PassCount = r.PassCount
	d.Advance = r.Advance
	d.TotalTests = len(r.Tests)
	d.Status = boe.StatusFor(r.HardVetoOK, r.Advance)
	return RunView{Run: r, DecisionSummary: d}
}

// CreateRun evaluates raw inputs against a deal and records the result as the
// deal's next run version. The deal's gate state, computed status and audit
// trail are updated in the same transaction, against the deal as stored at
// commit time so a concurrent override is never lost.
func (s *Service) CreateRun(ctx context.Context, dealID string, raw map[string]any, userID string) (*RunView, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}

	in := boe.ParseInput(raw)
	out, tests, dec := s.evaluate(in)

	now := s.now()
	run := &model.Run{
		ID:                uuid.New().String(),
		DealID:            dealID,
		Inputs:            in.Map(),
		Outputs:           out.Map(),
		Decision:          model.RunDecisionKill,
		BindingConstraint: out.BindingConstraint,
		HardVetoOK:        dec.HardVetoOK,
		PassCount:         dec.PassCount,
		Advance:           dec.Advance,
		CreatedBy:         userID,
		CreatedAt:         now,
	}
	if dec.Advance {
		run.Decision = model.RunDecisionAdvance
	}
	run.Tests = make([]model.TestRow, len(tests))
	for i, t := range tests {
		run.Tests[i] = model.NewTestRow(t)
	}

	computed := gate.MapDecision(dec)
	commit := store.RunCommit{
		Run: run,
		Gate: func(deal *model.Deal) []*model.GateEvent {
			return runGateEvents(deal, run, computed, dec, userID, now)
		},
	}

	var upd *store.GateUpdate
	err := resilience.Do(ctx, s.writeRetry("create_run"), func(ctx context.Context) error {
		var err error
		upd, err = s.store.CreateRun(ctx, commit)
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: create run")
	}
	s.recordEvents(upd.Events)

	logger().Info("boe run created",
		zap.String("deal_id", dealID),
		zap.String("run_id", run.ID),
		zap.Int("version", run.Version),
		zap.String("status", string(dec.Status)),
		zap.String("effective_status", string(upd.Deal.GateStatus)),
		zap.Int("pass_count", dec.PassCount),
	)

	view := newRunView(*run)
	return &view, nil
}

// runGateEvents moves deal to reflect run and returns the audit trail of the
// move. An override on the deal stays in force.
func runGateEvents(deal *model.Deal, run *model.Run, computed model.DealStatus, dec boe.Decision, userID string, now time.Time) []*model.GateEvent {
	events := []*model.GateEvent{{
		DealID:    deal.ID,
		EventType: model.EventBOERunCreated,
		ToStatus:  &run.Decision,
		Source:    model.SourceBOE,
		Metadata: map[string]any{
			"actor_user_id": userID,
			"boe_run_id":    run.ID,
			"version":       run.Version,
		},
		CreatedAt: now,
	}}
	if ev := gate.TransitionState(deal, run, userID, now); ev != nil {
		events = append(events, ev)
	}
	meta := map[string]any{
		"actor_user_id": userID,
		"boe_run_id":    run.ID,
		"pass_count":    dec.PassCount,
		"hard_veto_ok":  dec.HardVetoOK,
	}
	if ev, changed := gate.ApplyComputed(deal, computed, "BOE run recomputed gate status", meta, now); changed {
		events = append(events, ev)
	}
	return events
}

// ListRuns returns a deal's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, dealID string) ([]RunView, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	runs, err := s.store.ListRuns(ctx, dealID)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: list runs")
	}
	views := make([]RunView, len(runs))
	for i, r := range runs {
		views[i] = newRunView(r)
	}
	return views, nil
}

// GetRun returns one run of a deal.
func (s *Service) GetRun(ctx context.Context, dealID, runID string) (*RunView, error) {
	if _, err := s.store.GetDeal(ctx, dealID); err != nil {
		return nil, err
	}
	r, err := s.store.GetRun(ctx, dealID, runID)
	if err != nil {
		return nil, err
	}
	view := newRunView(*r)
	return &view, nil
}
