package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/model"
)

func outcome(key string, class boe.TestClass, result boe.TestResult) boe.TestOutcome {
	return boe.TestOutcome{Key: key, Class: class, Result: result}
}

func TestICScore(t *testing.T) {
	tests := []struct {
		name  string
		tests []boe.TestOutcome
		want  int
	}{
		{"all pass", []boe.TestOutcome{outcome("a", boe.ClassHard, boe.ResultPass)}, 100},
		{"empty", nil, 100},
		{"one of each", []boe.TestOutcome{
			outcome("a", boe.ClassHard, boe.ResultFail),
			outcome("b", boe.ClassSoft, boe.ResultFail),
			outcome("c", boe.ClassSoft, boe.ResultWarn),
			outcome("d", boe.ClassSoft, boe.ResultNA),
		}, 60},
		{"clamped at zero", []boe.TestOutcome{
			outcome("a", boe.ClassHard, boe.ResultFail),
			outcome("b", boe.ClassHard, boe.ResultFail),
			outcome("c", boe.ClassHard, boe.ResultFail),
			outcome("d", boe.ClassSoft, boe.ResultFail),
			outcome("e", boe.ClassSoft, boe.ResultFail),
			outcome("f", boe.ClassSoft, boe.ResultFail),
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ICScore(tt.tests)
			assert.Equal(t, tt.want, got)
		})
	}

	_, b := ICScore([]boe.TestOutcome{
		outcome("a", boe.ClassHard, boe.ResultFail),
		outcome("c", boe.ClassSoft, boe.ResultWarn),
	})
	assert.Equal(t, ICBreakdown{
		HardFailCount:   1,
		WarnCount:       1,
		HardFailPenalty: 25,
		WarnPenalty:     5,
		BaseScore:       100,
		TotalPenalty:    30,
	}, b)
}

func TestSortTests(t *testing.T) {
	in := []boe.TestOutcome{
		{Key: "zzz_custom"},
		{Key: boe.KeyMarketCapRate},
		{Key: "aaa_custom"},
		{Key: boe.KeyYieldOnCost},
		{Key: boe.KeyDSCR},
	}
	got := SortTests(in)

	keys := make([]string, len(got))
	for i, o := range got {
		keys[i] = o.Key
	}
	assert.Equal(t, []string{boe.KeyYieldOnCost, boe.KeyDSCR, boe.KeyMarketCapRate, "aaa_custom", "zzz_custom"}, keys)
	assert.Equal(t, "zzz_custom", in[0].Key)
}

func runFor(t *testing.T, in boe.Input) *model.Run {
	t.Helper()
	out, tests, dec := boe.Evaluate(in)
	run := &model.Run{
		ID:                "run-1",
		DealID:            "deal-1",
		Version:           1,
		Outputs:           out.Map(),
		BindingConstraint: out.BindingConstraint,
		HardVetoOK:        dec.HardVetoOK,
		PassCount:         dec.PassCount,
		Advance:           dec.Advance,
		CreatedAt:         now,
	}
	// Stored out of order to exercise sorting.
	for i := len(tests) - 1; i >= 0; i-- {
		run.Tests = append(run.Tests, model.NewTestRow(tests[i]))
	}
	return run
}

func canonical() boe.Input {
	return boe.Input{
		AskingPrice:       boe.Float64(10_000_000),
		InterestRate:      boe.Float64(0.06),
		LTC:               boe.Float64(0.7),
		CapexBudget:       boe.Float64(1_000_000),
		SellerNOIFromOM:   boe.Float64(600_000),
		GrossIncome:       boe.Float64(1_000_000),
		OperatingExpenses: boe.Float64(300_000),
		Y1NOI:             boe.Float64(700_000),
		Y1ExitCapRate:     boe.Float64(0.05),
	}
}

func TestBuildSummary_NoRun(t *testing.T) {
	deal := newDeal(model.DealStatusNeedsWork)
	s := BuildSummary(deal, nil, 0)

	assert.Equal(t, PayloadVersion, s.PayloadVersion)
	assert.Equal(t, StatusNoRun, s.ComputedStatus)
	assert.False(t, s.ComputedAdvance)
	assert.Nil(t, s.LatestRunID)
	assert.Equal(t, "NEEDS_WORK", s.EffectiveStatus)
	assert.False(t, s.EffectiveAdvance)
	assert.Equal(t, 100, s.ICScore)
	assert.Empty(t, s.Explainability.Tests)
	assert.Nil(t, s.LastUpdatedAt)
}

func TestBuildSummary_WithRun(t *testing.T) {
	deal := newDeal(model.DealStatusAdvance)
	run := runFor(t, canonical())

	s := BuildSummary(deal, run, 3)
	require.NotNil(t, s.LatestRunID)
	assert.Equal(t, "run-1", *s.LatestRunID)
	assert.Equal(t, "ADVANCE", s.ComputedStatus)
	assert.True(t, s.ComputedAdvance)
	assert.True(t, s.ComputedHardVetoOK)
	assert.Equal(t, 7, s.ComputedPassCount)
	assert.Equal(t, boe.TestKeyOrder, s.ComputedPassTests)
	assert.True(t, s.EffectiveAdvance)
	assert.Equal(t, 100, s.ICScore)
	assert.Equal(t, 3, s.AuditTrailCount)
	require.NotNil(t, s.LastUpdatedAt)
	assert.Equal(t, now, *s.LastUpdatedAt)

	require.Len(t, s.Explainability.Tests, 7)
	assert.Equal(t, boe.KeyYieldOnCost, s.Explainability.Tests[0].Key)
	assert.Equal(t, "CoC", *s.Explainability.BindingConstraint)
	assert.InDelta(t, 11_612_612.61, s.Explainability.BOEMaxBid, 0.01)
	assert.NotNil(t, s.Explainability.MaxBidByConstraint)
}

func TestBuildSummary_Override(t *testing.T) {
	deal := newDeal(model.DealStatusBlocked)
	_, ok := SetOverride(deal, statusPtr(model.DealStatusApproved), strPtr("IC call"), "admin", now)
	require.True(t, ok)

	in := canonical()
	in.Y1NOI = boe.Float64(416_000)
	s := BuildSummary(deal, runFor(t, in), 1)

	assert.True(t, s.HasOverride)
	assert.Equal(t, "APPROVED", *s.OverrideStatus)
	assert.Equal(t, "admin", *s.OverrideUser)
	assert.Equal(t, "BLOCKED", s.ComputedStatus)
	assert.Equal(t, "APPROVED", s.EffectiveStatus)
	assert.True(t, s.EffectiveAdvance)
	assert.False(t, s.ComputedAdvance)
	assert.Less(t, s.ICScore, 100)
}

func TestBuildSummary_MaxBidFallback(t *testing.T) {
	run := runFor(t, canonical())
	delete(run.Outputs, "max_bid_by_constraint")

	s := BuildSummary(newDeal(model.DealStatusAdvance), run, 0)
	mb, ok := s.Explainability.MaxBidByConstraint.(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 12_000_000, mb["max_price_at_capex_multiple"], 0.01)
}

func TestStatusSortKey(t *testing.T) {
	assert.Equal(t, 0, StatusSortKey("BLOCKED"))
	assert.Equal(t, 1, StatusSortKey("NEEDS_WORK"))
	assert.Equal(t, 2, StatusSortKey("ADVANCE"))
	assert.Equal(t, 3, StatusSortKey("APPROVED"))
	assert.Equal(t, 4, StatusSortKey("NO_RUN"))
	assert.Equal(t, 999, StatusSortKey("SOMETHING"))
}

func TestIsAdvanceStatus(t *testing.T) {
	assert.True(t, IsAdvanceStatus("ADVANCE"))
	assert.True(t, IsAdvanceStatus("APPROVED"))
	assert.False(t, IsAdvanceStatus("NEEDS_WORK"))
}
