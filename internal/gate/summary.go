package gate

import (
	"cmp"
	"slices"
	"time"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// PayloadVersion is stamped on every gate summary.
const PayloadVersion = "1.0"

// IC score penalties.
const (
	icBaseScore   = 100
	icHardPenalty = 25
	icSoftPenalty = 10
	icWarnPenalty = 5
)

// ICBreakdown explains how an IC score was reached.
type ICBreakdown struct {
	HardFailCount   int `json:"hard_fail_count"`
	SoftFailCount   int `json:"soft_fail_count"`
	WarnCount       int `json:"warn_count"`
	HardFailPenalty int `json:"hard_fail_penalty"`
	SoftFailPenalty int `json:"soft_fail_penalty"`
	WarnPenalty     int `json:"warn_penalty"`
	BaseScore       int `json:"base_score"`
	TotalPenalty    int `json:"total_penalty"`
}

// ICScore scores a run's tests out of 100 for investment committee review.
func ICScore(tests []boe.TestOutcome) (int, ICBreakdown) {
	b := ICBreakdown{BaseScore: icBaseScore}
	for _, t := range tests {
		switch {
		case t.Result == boe.ResultWarn:
			b.WarnCount++
		case t.Result == boe.ResultFail && t.Class == boe.ClassHard:
			b.HardFailCount++
		case t.Result == boe.ResultFail && t.Class == boe.ClassSoft:
			b.SoftFailCount++
		}
	}
	b.HardFailPenalty = b.HardFailCount * icHardPenalty
	b.SoftFailPenalty = b.SoftFailCount * icSoftPenalty
	b.WarnPenalty = b.WarnCount * icWarnPenalty
	b.TotalPenalty = b.HardFailPenalty + b.SoftFailPenalty + b.WarnPenalty

	return min(icBaseScore, max(0, icBaseScore-b.TotalPenalty)), b
}

// SortTests orders tests by the battery order; unknown keys go last by name.
func SortTests(tests []boe.TestOutcome) []boe.TestOutcome {
	sorted := slices.Clone(tests)
	slices.SortStableFunc(sorted, func(a, b boe.TestOutcome) int {
		ia, ib := testIndex(a.Key), testIndex(b.Key)
		if ia != ib {
			return ia - ib
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return sorted
}

func testIndex(key string) int {
	if i := slices.Index(boe.TestKeyOrder, key); i >= 0 {
		return i
	}
	return 999
}

// Explainability carries what a reviewer needs to see why a deal gated the
// way it did.
type Explainability struct {
	Tests              []boe.TestOutcome `json:"tests"`
	BindingConstraint  *string           `json:"binding_constraint"`
	BOEMaxBid          any               `json:"boe_max_bid"`
	MaxBidByConstraint any               `json:"max_bid_by_constraint"`
}

// Summary is the gate view of a single deal.
type Summary struct {
	PayloadVersion string  `json:"gate_payload_version"`
	DealID         string  `json:"deal_id"`
	DealName       string  `json:"deal_name"`
	LatestRunID    *string `json:"latest_run_id"`

	ComputedStatus     string   `json:"computed_status"`
	ComputedPassCount  int      `json:"computed_pass_count"`
	ComputedHardVetoOK bool     `json:"computed_hard_veto_ok"`
	ComputedAdvance    bool     `json:"computed_advance"`
	ComputedFailedHard []string `json:"computed_failed_hard_tests"`
	ComputedFailedSoft []string `json:"computed_failed_soft_tests"`
	ComputedWarnTests  []string `json:"computed_warn_tests"`
	ComputedPassTests  []string `json:"computed_pass_tests"`
	ComputedNATests    []string `json:"computed_na_tests"`

	HasOverride       bool       `json:"has_override"`
	OverrideStatus    *string    `json:"override_status"`
	OverrideReason    *string    `json:"override_reason"`
	OverrideUser      *string    `json:"override_user"`
	OverrideCreatedAt *time.Time `json:"override_created_at"`

	EffectiveStatus    string `json:"effective_status"`
	EffectiveAdvance   bool   `json:"effective_advance"`
	EffectivePassCount int    `json:"effective_pass_count"`

	Explainability   Explainability `json:"explainability"`
	ICScore          int            `json:"ic_score"`
	ICScoreBreakdown ICBreakdown    `json:"ic_score_breakdown"`
	LastUpdatedAt    *time.Time     `json:"last_updated_at"`
	AuditTrailCount  int            `json:"audit_trail_count"`
}

// IsAdvanceStatus reports whether status lets a deal proceed.
func IsAdvanceStatus(status string) bool {
	return status == string(model.DealStatusAdvance) || status == string(model.DealStatusApproved)
}

// BuildSummary assembles the gate summary from the deal, its latest run
// (nil when never evaluated) and the size of its audit trail.
func BuildSummary(deal *model.Deal, latest *model.Run, auditCount int) Summary {
	var tests []boe.TestOutcome
	if latest != nil {
		tests = SortTests(latest.Outcomes())
	}
	dec := boe.Decide(tests)
	score, breakdown := ICScore(tests)

	s := Summary{
		PayloadVersion:     PayloadVersion,
		DealID:             deal.ID,
		DealName:           deal.Name,
		ComputedStatus:     StatusNoRun,
		ComputedPassCount:  dec.PassCount,
		ComputedHardVetoOK: dec.HardVetoOK,
		ComputedFailedHard: dec.FailedHardTests,
		ComputedFailedSoft: dec.FailedSoftTests,
		ComputedWarnTests:  dec.WarnTests,
		ComputedPassTests:  dec.PassTests,
		ComputedNATests:    dec.NATests,
		HasOverride:        deal.HasOverride(),
		OverrideReason:     deal.GateOverrideReason,
		OverrideUser:       deal.GateOverrideBy,
		OverrideCreatedAt:  deal.GateOverrideAt,
		EffectiveStatus:    string(deal.GateStatus),
		EffectiveAdvance:   IsAdvanceStatus(string(deal.GateStatus)),
		EffectivePassCount: dec.PassCount,
		ICScore:            score,
		ICScoreBreakdown:   breakdown,
		LastUpdatedAt:      deal.GateUpdatedAt,
		AuditTrailCount:    auditCount,
		Explainability:     Explainability{Tests: tests},
	}
	if s.Explainability.Tests == nil {
		s.Explainability.Tests = []boe.TestOutcome{}
	}
	if deal.GateOverrideStatus != nil {
		s.OverrideStatus = str(string(*deal.GateOverrideStatus))
	}

	if latest == nil {
		return s
	}

	id := latest.ID
	s.LatestRunID = &id
	s.ComputedStatus = string(deal.GateStatusComputed)
	s.ComputedAdvance = dec.Advance
	if s.LastUpdatedAt == nil {
		created := latest.CreatedAt
		s.LastUpdatedAt = &created
	}

	s.Explainability.BindingConstraint = latest.BindingConstraint
	s.Explainability.BOEMaxBid = latest.Outputs["boe_max_bid"]
	if mb, ok := latest.Outputs["max_bid_by_constraint"]; ok {
		s.Explainability.MaxBidByConstraint = mb
	} else {
		s.Explainability.MaxBidByConstraint = map[string]any{
			"max_price_at_yoc":            latest.Outputs["max_price_at_yoc"],
			"max_price_at_capex_multiple": latest.Outputs["max_price_at_capex_multiple"],
			"max_price_at_coc_threshold":  latest.Outputs["max_price_at_coc_threshold"],
		}
	}
	return s
}

var statusOrder = []string{
	string(model.DealStatusBlocked),
	string(model.DealStatusNeedsWork),
	string(model.DealStatusAdvance),
	string(model.DealStatusApproved),
	StatusNoRun,
}

// StatusSortKey orders statuses from most to least restrictive. Unknown
// statuses sort last.
func StatusSortKey(status string) int {
	if i := slices.Index(statusOrder, status); i >= 0 {
		return i
	}
	return 999
}
