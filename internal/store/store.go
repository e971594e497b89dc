package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// ErrNotFound is returned when a workspace, deal or run does not exist.
var ErrNotFound = eris.New("not found")

// DealFilter specifies criteria for listing deals.
type DealFilter struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// GateMutation applies gate changes to a deal as it stands inside the write
// transaction and returns the audit events the change produced. Returning
// no events leaves the deal row untouched. It may be called more than once
// when the write is retried, so it must not depend on earlier calls.
type GateMutation func(deal *model.Deal) []*model.GateEvent

// RunCommit is a BOE run to record together with the gate changes it causes.
// Gate sees the run with its version assigned.
type RunCommit struct {
	Run  *model.Run
	Gate GateMutation
}

// GateUpdate is the deal as written and the events recorded with it.
type GateUpdate struct {
	Deal   *model.Deal
	Events []*model.GateEvent
}

// Store defines the persistence interface for deals, BOE runs and the gate
// audit trail. Runs are append-only; there is no update operation.
type Store interface {
	// Workspaces
	CreateWorkspace(ctx context.Context, name, createdBy string) (*model.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)

	// Deals
	CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error)
	GetDeal(ctx context.Context, id string) (*model.Deal, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error)
	UpdateDealGate(ctx context.Context, dealID string, mutate GateMutation) (*GateUpdate, error)

	// Runs
	CreateRun(ctx context.Context, c RunCommit) (*GateUpdate, error)
	GetRun(ctx context.Context, dealID, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, dealID string) ([]model.Run, error)
	LatestRun(ctx context.Context, dealID string) (*model.Run, error)

	// Gate events
	ListGateEvents(ctx context.Context, dealID string, limit int) ([]model.GateEvent, error)
	CountGateEvents(ctx context.Context, dealID string) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

var testColumns = []string{
	"id", "boe_run_id", "test_key", "test_name", "test_class", "threshold", "actual",
	"threshold_display", "actual_display", "result", "note",
}

func prepareCommit(c RunCommit) error {
	if c.Run == nil || c.Gate == nil {
		return eris.New("store: run commit needs a run and a gate mutation")
	}
	if c.Run.DealID == "" {
		return eris.New("store: run has no deal")
	}
	if c.Run.ID == "" {
		c.Run.ID = newID()
	}
	if c.Run.CreatedAt.IsZero() {
		c.Run.CreatedAt = now()
	}
	for i := range c.Run.Tests {
		if c.Run.Tests[i].ID == "" {
			c.Run.Tests[i].ID = newID()
		}
		c.Run.Tests[i].RunID = c.Run.ID
	}
	return nil
}

// applyGate runs mutate against the freshly read deal and stamps the events
// it returns.
func applyGate(deal *model.Deal, mutate GateMutation) *GateUpdate {
	events := mutate(deal)
	for _, ev := range events {
		prepareEvent(ev, deal.ID)
	}
	return &GateUpdate{Deal: deal, Events: events}
}

func prepareEvent(ev *model.GateEvent, dealID string) {
	if ev.ID == "" {
		ev.ID = newID()
	}
	if ev.DealID == "" {
		ev.DealID = dealID
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now()
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func statusArg(s *model.DealStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func statusPtr(s *string) *model.DealStatus {
	if s == nil {
		return nil
	}
	ds := model.DealStatus(*s)
	return &ds
}

func newID() string { return uuid.New().String() }

func now() time.Time { return time.Now().UTC() }

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func joinColumns(cols []string) string { return strings.Join(cols, ", ") }

func testRowValues(t model.TestRow) []any {
	return []any{
		t.ID, t.RunID, t.Key, t.Name, string(t.Class), nullable(t.Threshold), nullable(t.Actual),
		t.ThresholdDisplay, t.ActualDisplay, string(t.Result), nullable(t.Note),
	}
}

// newDeal fills in the identity and the initial gate position of a deal
// about to be inserted.
func newDeal(in model.Deal) *model.Deal {
	d := in
	if d.ID == "" {
		d.ID = newID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now()
	}
	if d.CurrentGateState == "" {
		d.CurrentGateState = model.GateStateNoRun
	}
	if d.GateStatusComputed == "" {
		d.GateStatusComputed = model.DealStatusNeedsWork
	}
	if d.GateStatus == "" {
		d.GateStatus = d.GateStatusComputed
	}
	d.LatestRunID = nil
	d.GateOverrideStatus = nil
	d.GateOverrideReason = nil
	d.GateOverrideBy = nil
	d.GateOverrideAt = nil
	d.GateUpdatedAt = nil
	return &d
}
