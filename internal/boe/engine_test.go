package boe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canonicalInput() Input {
	return Input{
		AskingPrice:       Float64(10_000_000),
		InterestRate:      Float64(0.06),
		LTC:               Float64(0.7),
		CapexBudget:       Float64(1_000_000),
		SellerNOIFromOM:   Float64(600_000),
		GrossIncome:       Float64(1_000_000),
		OperatingExpenses: Float64(300_000),
		Y1NOI:             Float64(700_000),
		Y1ExitCapRate:     Float64(0.05),
	}
}

func killInput() Input {
	in := canonicalInput()
	in.SellerNOIFromOM = Float64(500_000)
	in.OperatingExpenses = Float64(350_000)
	in.Y1NOI = Float64(416_000)
	return in
}

func requireFloat(t *testing.T, want float64, got *float64, delta float64) {
	t.Helper()
	require.NotNil(t, got)
	assert.InDelta(t, want, *got, delta)
}

func resultsByKey(tests []TestOutcome) map[string]TestResult {
	m := make(map[string]TestResult, len(tests))
	for _, tt := range tests {
		m[tt.Key] = tt.Result
	}
	return m
}

func TestEvaluate_Canonical(t *testing.T) {
	out, tests, dec := Evaluate(canonicalInput())

	requireFloat(t, 0.07, out.MarketCapRate, 1e-9)
	requireFloat(t, 0.06, out.AskingCapRate, 1e-9)
	requireFloat(t, 0.07, out.AnalysisCapRate, 1e-9)
	requireFloat(t, 0.05, out.Y1ExitCapRate, 1e-9)
	requireFloat(t, 1.515151, out.Y1DSCR, 1e-5)
	requireFloat(t, 14_000_000, out.ResidualSaleAtExitCap, 0.01)
	requireFloat(t, 4.0, out.Y1CapexValueMultiple, 1e-9)
	requireFloat(t, 0.3, out.Y1ExpenseRatio, 1e-9)
	requireFloat(t, 0.072121, out.Y1CashOnCash, 1e-5)
	requireFloat(t, 0.063636, out.Y1YieldOnCostUnlevered, 1e-5)

	requireFloat(t, 11_666_666.67, out.MaxPriceAtYOC, 0.01)
	requireFloat(t, 12_000_000, out.MaxPriceAtCapexMultiple, 0.01)
	requireFloat(t, 11_612_612.61, out.MaxPriceAtCoCThreshold, 0.01)
	requireFloat(t, 11_612_612.61, out.BOEMaxBid, 0.01)
	requireFloat(t, 1_612_612.61, out.DeltaVsAsking, 0.01)
	requireFloat(t, 2_387_387.39, out.ProfitPotential, 0.01)
	requireFloat(t, 0, out.DepositAmount, 0)
	require.NotNil(t, out.BindingConstraint)
	assert.Equal(t, ConstraintCoC, *out.BindingConstraint)
	assert.Equal(t, out.MaxPriceAtYOC, out.MaxBidByConstraint.MaxPriceAtYOC)

	require.Len(t, tests, TotalTests)
	for i, tt := range tests {
		assert.Equal(t, TestKeyOrder[i], tt.Key)
		assert.Equal(t, ResultPass, tt.Result, tt.Key)
	}

	assert.Equal(t, 7, dec.TotalTests)
	assert.Equal(t, 7, dec.PassCount)
	assert.True(t, dec.HardVetoOK)
	assert.True(t, dec.Advance)
	assert.Equal(t, StatusAdvance, dec.Status)
	assert.Empty(t, dec.FailedHardTests)
	assert.Empty(t, dec.NATests)
	assert.Equal(t, TestKeyOrder, dec.PassTests)
}

func TestEvaluate_CanonicalDisplays(t *testing.T) {
	_, tests, _ := Evaluate(canonicalInput())

	want := []struct {
		key, name       string
		class           TestClass
		threshold, actu string
	}{
		{KeyYieldOnCost, "Yield on Cost Test", ClassHard, ">= Exit Cap + 1.00% (5.00% + 1.00%)", "6.36%"},
		{KeyCapexValueMultiple, "CapEx Value Multiple Test", ClassHard, ">= 2.00x", "4.00x"},
		{KeyPositiveLeverage, "Positive Leverage Test", ClassHard, ">= Interest Rate (6.00%)", "6.36%"},
		{KeyCashOnCash, "Cash on Cash Test", ClassSoft, ">= 4.50%", "7.21%"},
		{KeyDSCR, "DSCR Test", ClassSoft, "PASS>=1.25 | WARN>=1.15 | FAIL<1.15", "1.52"},
		{KeyExpenseRatio, "Expense Ratio Test", ClassSoft, ">= 28.00%", "30.00%"},
		{KeyMarketCapRate, "Market Cap Rate Test", ClassSoft, ">= Asking Cap Rate (6.00%)", "7.00%"},
	}

	require.Len(t, tests, len(want))
	for i, w := range want {
		t.Run(w.key, func(t *testing.T) {
			got := tests[i]
			assert.Equal(t, w.key, got.Key)
			assert.Equal(t, w.name, got.Name)
			assert.Equal(t, w.class, got.Class)
			assert.Equal(t, w.threshold, got.ThresholdDisplay)
			assert.Equal(t, w.actu, got.ActualDisplay)
		})
	}

	requireFloat(t, 0.06, tests[0].Threshold, 1e-12)
	requireFloat(t, 2.0, tests[1].Threshold, 0)
	requireFloat(t, 0.06, tests[2].Threshold, 0)
	requireFloat(t, 1.25, tests[4].Threshold, 0)
	requireFloat(t, 0.06, tests[6].Threshold, 1e-12)
}

func TestEvaluate_KillCase(t *testing.T) {
	out, tests, dec := Evaluate(killInput())

	requireFloat(t, 0.037818, out.Y1YieldOnCostUnlevered, 1e-5)
	requireFloat(t, -1.68, out.Y1CapexValueMultiple, 1e-9)
	requireFloat(t, 0.900433, out.Y1DSCR, 1e-5)

	results := resultsByKey(tests)
	assert.Equal(t, ResultFail, results[KeyYieldOnCost])
	assert.Equal(t, ResultFail, results[KeyCapexValueMultiple])
	assert.Equal(t, ResultFail, results[KeyPositiveLeverage])
	assert.Equal(t, ResultFail, results[KeyCashOnCash])
	assert.Equal(t, ResultFail, results[KeyDSCR])
	assert.Equal(t, ResultPass, results[KeyExpenseRatio])
	assert.Equal(t, ResultFail, results[KeyMarketCapRate])

	assert.Contains(t, dec.FailedHardTests, KeyYieldOnCost)
	assert.Equal(t, []string{KeyYieldOnCost, KeyCapexValueMultiple, KeyPositiveLeverage}, dec.FailedHardTests)
	assert.Equal(t, []string{KeyCashOnCash, KeyDSCR, KeyMarketCapRate}, dec.FailedSoftTests)
	assert.Equal(t, 1, dec.PassCount)
	assert.False(t, dec.HardVetoOK)
	assert.False(t, dec.Advance)
	assert.Equal(t, StatusBlocked, dec.Status)
}

func TestEvaluate_DSCRBands(t *testing.T) {
	tests := []struct {
		name string
		noi  float64
		want TestResult
	}{
		{"pass at 1.2554", 580_000, ResultPass},
		{"warn at 1.1688", 540_000, ResultWarn},
		{"fail at 1.0823", 500_000, ResultFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := canonicalInput()
			in.Y1NOI = Float64(tt.noi)
			_, outcomes, _ := Evaluate(in)
			assert.Equal(t, tt.want, resultsByKey(outcomes)[KeyDSCR])
		})
	}
}

func TestEvaluate_WarnCountsTowardQuorum(t *testing.T) {
	warnIn := canonicalInput()
	warnIn.Y1NOI = Float64(540_000)
	failIn := canonicalInput()
	failIn.Y1NOI = Float64(500_000)

	_, _, warnDec := Evaluate(warnIn)
	_, _, failDec := Evaluate(failIn)

	assert.Equal(t, []string{KeyDSCR}, warnDec.WarnTests)
	assert.NotContains(t, warnDec.PassTests, KeyDSCR)
	assert.Equal(t, 2, warnDec.PassCount)
	assert.Equal(t, 1, failDec.PassCount)
	assert.Greater(t, warnDec.PassCount, failDec.PassCount)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	out, tests, dec := Evaluate(Input{})

	for _, k := range OutputKeys {
		v, ok := out.Lookup(k)
		require.True(t, ok, k)
		assert.Nil(t, v, k)
	}
	for _, tt := range tests {
		assert.Equal(t, ResultNA, tt.Result, tt.Key)
		assert.Equal(t, "N/A", tt.ActualDisplay, tt.Key)
	}

	assert.Equal(t, 7, dec.TotalTests)
	assert.Equal(t, 0, dec.PassCount)
	assert.True(t, dec.HardVetoOK)
	assert.False(t, dec.Advance)
	assert.Equal(t, StatusNeedsWork, dec.Status)
	assert.Equal(t, TestKeyOrder, dec.NATests)
	assert.Empty(t, dec.FailedHardTests)
	assert.Empty(t, dec.FailedSoftTests)
	assert.Empty(t, dec.WarnTests)
	assert.Empty(t, dec.PassTests)
}

func TestEvaluate_NANeutrality(t *testing.T) {
	// No capex and no interest rate: the capex multiple and leverage hard
	// tests cannot be evaluated.
	in := canonicalInput()
	in.CapexBudget = nil
	in.InterestRate = nil

	out, tests, dec := Evaluate(in)
	assert.Nil(t, out.Y1CapexValueMultiple)
	requireFloat(t, 14_000_000, out.MaxPriceAtCapexMultiple, 0.01)

	results := resultsByKey(tests)
	assert.Equal(t, ResultNA, results[KeyCapexValueMultiple])
	assert.Equal(t, ResultNA, results[KeyPositiveLeverage])
	assert.Equal(t, ResultNA, results[KeyDSCR])

	for _, na := range dec.NATests {
		assert.NotContains(t, dec.FailedHardTests, na)
		assert.NotContains(t, dec.FailedSoftTests, na)
		assert.NotContains(t, dec.WarnTests, na)
		assert.NotContains(t, dec.PassTests, na)
	}
	assert.True(t, dec.HardVetoOK)
	assert.Equal(t, dec.HardVetoOK && dec.PassCount >= QuorumRequired, dec.Advance)
}

func TestEvaluate_NOIDerivedFromIncome(t *testing.T) {
	in := canonicalInput()
	in.Y1NOI = nil

	out, _, dec := Evaluate(in)
	requireFloat(t, 0.07, out.AnalysisCapRate, 1e-9)
	assert.True(t, dec.Advance)
}

func TestEvaluate_ExitCapFallsBackToMarket(t *testing.T) {
	in := canonicalInput()
	in.Y1ExitCapRate = nil
	in.MarketCapRate = Float64(0.065)

	out, _, _ := Evaluate(in)
	requireFloat(t, 0.065, out.MarketCapRate, 0)
	requireFloat(t, 0.065, out.Y1ExitCapRate, 0)
}

func TestEvaluate_DepositAmount(t *testing.T) {
	in := canonicalInput()
	in.DepositPct = Float64(0.05)

	out, _, _ := Evaluate(in)
	requireFloat(t, 500_000, out.DepositAmount, 1e-6)
}

func TestEvaluate_HardFailBlocksRegardlessOfSoft(t *testing.T) {
	in := canonicalInput()
	in.Y1ExitCapRate = Float64(0.06)

	_, tests, dec := Evaluate(in)
	assert.Equal(t, ResultFail, resultsByKey(tests)[KeyYieldOnCost])
	assert.GreaterOrEqual(t, dec.PassCount, QuorumRequired)
	assert.False(t, dec.HardVetoOK)
	assert.Equal(t, StatusBlocked, dec.Status)
}

func TestEvaluate_BindingMatchesMinimum(t *testing.T) {
	for _, in := range []Input{canonicalInput(), killInput()} {
		out, _, _ := Evaluate(in)
		require.NotNil(t, out.BOEMaxBid)
		require.NotNil(t, out.BindingConstraint)

		byLabel := map[string]*float64{
			ConstraintYOC:   out.MaxPriceAtYOC,
			ConstraintCapex: out.MaxPriceAtCapexMultiple,
			ConstraintCoC:   out.MaxPriceAtCoCThreshold,
		}
		for _, v := range byLabel {
			if v != nil {
				assert.LessOrEqual(t, *out.BOEMaxBid, *v)
			}
		}
		assert.Equal(t, *out.BOEMaxBid, *byLabel[*out.BindingConstraint])
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	in := canonicalInput()
	out1, tests1, dec1 := Evaluate(in)
	out2, tests2, dec2 := Evaluate(in)
	assert.Equal(t, out1, out2)
	assert.Equal(t, tests1, tests2)
	assert.Equal(t, dec1, dec2)
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	in := canonicalInput()
	out, _, _ := Evaluate(in)

	*in.SellerNOIFromOM = 1
	requireFloat(t, 600_000, out.SellerNOIFromOM, 0)
}

func TestEvaluate_Concurrent(t *testing.T) {
	want, _, wantDec := Evaluate(canonicalInput())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _, dec := Evaluate(canonicalInput())
			assert.Equal(t, want, out)
			assert.Equal(t, wantDec, dec)
		}()
	}
	wg.Wait()
}

func TestBindingConstraint_TieGoesToEarlierLabel(t *testing.T) {
	best, label := bindingConstraint([]candidate{
		{label: ConstraintYOC, value: Float64(100)},
		{label: ConstraintCapex, value: Float64(100)},
		{label: ConstraintCoC, value: Float64(200)},
	})
	requireFloat(t, 100, best, 0)
	require.NotNil(t, label)
	assert.Equal(t, ConstraintYOC, *label)

	best, label = bindingConstraint([]candidate{
		{label: ConstraintYOC, value: nil},
		{label: ConstraintCapex, value: Float64(50)},
		{label: ConstraintCoC, value: Float64(50)},
	})
	requireFloat(t, 50, best, 0)
	assert.Equal(t, ConstraintCapex, *label)

	best, label = bindingConstraint([]candidate{{label: ConstraintYOC}})
	assert.Nil(t, best)
	assert.Nil(t, label)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusBlocked, StatusFor(false, false))
	assert.Equal(t, StatusNeedsWork, StatusFor(true, false))
	assert.Equal(t, StatusAdvance, StatusFor(true, true))
}

func TestEvaluate_ZeroAndNegativeOperands(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(in *Input)
		check func(t *testing.T, out Output, results map[string]TestResult)
	}{
		{
			name: "zero asking price",
			edit: func(in *Input) { in.AskingPrice = Float64(0) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.MarketCapRate)
				assert.Nil(t, out.AskingCapRate)
				assert.Nil(t, out.AnalysisCapRate)
				// Project cost is capex plus reserves alone.
				requireFloat(t, 0.7, out.Y1YieldOnCostUnlevered, 1e-9)
				requireFloat(t, 14.0, out.Y1CapexValueMultiple, 1e-9)
				requireFloat(t, 0, out.DepositAmount, 0)
				assert.Equal(t, ResultNA, results[KeyMarketCapRate])
			},
		},
		{
			name: "zero gross income",
			edit: func(in *Input) { in.GrossIncome = Float64(0) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.Y1ExpenseRatio)
				assert.Equal(t, ResultNA, results[KeyExpenseRatio])
				assert.Equal(t, ResultPass, results[KeyDSCR])
			},
		},
		{
			name: "zero interest rate",
			edit: func(in *Input) { in.InterestRate = Float64(0) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				// Debt service is zero, so DSCR is undefined and cash on
				// cash is NOI over equity.
				assert.Nil(t, out.Y1DSCR)
				requireFloat(t, 700_000.0/3_300_000.0, out.Y1CashOnCash, 1e-9)
				assert.Equal(t, ResultNA, results[KeyDSCR])
				assert.Equal(t, ResultNA, results[KeyPositiveLeverage])
				requireFloat(t, 700_000/0.0135-1_000_000, out.MaxPriceAtCoCThreshold, 0.01)
			},
		},
		{
			name: "negative interest rate",
			edit: func(in *Input) { in.InterestRate = Float64(-0.01) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Equal(t, ResultNA, results[KeyPositiveLeverage])
				assert.Equal(t, ResultNA, results[KeyDSCR])
			},
		},
		{
			name: "zero market cap rate",
			edit: func(in *Input) { in.MarketCapRate = Float64(0) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				requireFloat(t, 0, out.MarketCapRate, 0)
				assert.Equal(t, ResultNA, results[KeyMarketCapRate])
			},
		},
		{
			name: "negative asking cap rate",
			edit: func(in *Input) { in.SellerNOIFromOM = Float64(-50_000) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				requireFloat(t, -0.005, out.AskingCapRate, 1e-9)
				assert.Equal(t, ResultNA, results[KeyMarketCapRate])
			},
		},
		{
			name: "zero capex",
			edit: func(in *Input) { in.CapexBudget = Float64(0) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.Y1CapexValueMultiple)
				assert.Equal(t, ResultNA, results[KeyCapexValueMultiple])
				requireFloat(t, 14_000_000, out.MaxPriceAtCapexMultiple, 0.01)
			},
		},
		{
			name: "negative capex",
			edit: func(in *Input) { in.CapexBudget = Float64(-500_000) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.Y1CapexValueMultiple)
				assert.Equal(t, ResultNA, results[KeyCapexValueMultiple])
				requireFloat(t, 15_000_000, out.MaxPriceAtCapexMultiple, 0.01)
			},
		},
		{
			name: "full leverage without a rate",
			edit: func(in *Input) {
				in.LTC = Float64(1)
				in.InterestRate = nil
			},
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.MaxPriceAtCoCThreshold)
				assert.Nil(t, out.MaxBidByConstraint.MaxPriceAtCoCThreshold)
				assert.Nil(t, out.Y1CashOnCash)
				requireFloat(t, 11_666_666.67, out.BOEMaxBid, 0.01)
				require.NotNil(t, out.BindingConstraint)
				assert.Equal(t, ConstraintYOC, *out.BindingConstraint)
				assert.Equal(t, ResultNA, results[KeyCashOnCash])
			},
		},
		{
			name: "exit cap cancels the yield spread",
			edit: func(in *Input) { in.Y1ExitCapRate = Float64(-0.01) },
			check: func(t *testing.T, out Output, results map[string]TestResult) {
				assert.Nil(t, out.MaxPriceAtYOC)
				requireFloat(t, -70_000_000, out.ResidualSaleAtExitCap, 0.01)
				requireFloat(t, -72_000_000, out.MaxPriceAtCapexMultiple, 0.01)
				require.NotNil(t, out.BindingConstraint)
				assert.Equal(t, ConstraintCapex, *out.BindingConstraint)
				assert.Equal(t, ResultFail, results[KeyCapexValueMultiple])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := canonicalInput()
			tt.edit(&in)

			out, outcomes, dec := Evaluate(in)
			require.Len(t, outcomes, TotalTests)
			assert.Equal(t, dec.TotalTests, len(dec.PassTests)+len(dec.WarnTests)+
				len(dec.FailedHardTests)+len(dec.FailedSoftTests)+len(dec.NATests))
			tt.check(t, out, resultsByKey(outcomes))
		})
	}
}
