package model

import (
	"time"

	"github.com/sells-group/underwriting-cli/internal/boe"
)

// Run decision labels as persisted on the run row.
const (
	RunDecisionAdvance = "ADVANCE"
	RunDecisionKill    = "KILL"
)

// Run is an immutable, versioned BOE evaluation of a deal.
type Run struct {
	ID                string         `json:"id"`
	DealID            string         `json:"deal_id"`
	Version           int            `json:"version"`
	Inputs            map[string]any `json:"inputs"`
	Outputs           map[string]any `json:"outputs"`
	Decision          string         `json:"decision"`
	BindingConstraint *string        `json:"binding_constraint"`
	HardVetoOK        bool           `json:"hard_veto_ok"`
	PassCount         int            `json:"pass_count"`
	Advance           bool           `json:"advance"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	Tests             []TestRow      `json:"tests"`
}

// TestRow is one persisted test outcome of a run.
type TestRow struct {
	ID               string         `json:"id"`
	RunID            string         `json:"boe_run_id"`
	Key              string         `json:"test_key"`
	Name             string         `json:"test_name"`
	Class            boe.TestClass  `json:"test_class"`
	Threshold        *float64       `json:"threshold"`
	Actual           *float64       `json:"actual"`
	ThresholdDisplay string         `json:"threshold_display"`
	ActualDisplay    string         `json:"actual_display"`
	Result           boe.TestResult `json:"result"`
	Note             *string        `json:"note,omitempty"`
}

// NewTestRow copies an engine outcome into a row.
func NewTestRow(o boe.TestOutcome) TestRow {
	return TestRow{
		Key:              o.Key,
		Name:             o.Name,
		Class:            o.Class,
		Threshold:        o.Threshold,
		Actual:           o.Actual,
		ThresholdDisplay: o.ThresholdDisplay,
		ActualDisplay:    o.ActualDisplay,
		Result:           o.Result,
	}
}

// Outcome converts the row back into an engine outcome.
func (r TestRow) Outcome() boe.TestOutcome {
	return boe.TestOutcome{
		Key:              r.Key,
		Name:             r.Name,
		Class:            r.Class,
		Threshold:        r.Threshold,
		Actual:           r.Actual,
		ThresholdDisplay: r.ThresholdDisplay,
		ActualDisplay:    r.ActualDisplay,
		Result:           r.Result,
	}
}

// Outcomes converts every test row of the run.
func (r *Run) Outcomes() []boe.TestOutcome {
	out := make([]boe.TestOutcome, len(r.Tests))
	for i, t := range r.Tests {
		out[i] = t.Outcome()
	}
	return out
}
