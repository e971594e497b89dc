// Package boe implements the Back of Envelope underwriting gate: metric
// derivation from a deal's financial inputs, the fixed seven-test battery, and
// the advance / needs-work / blocked decision.
//
// Evaluate is a pure function. It performs no I/O, holds no state, and is safe
// to call from any number of goroutines.
package boe

// TestClass separates tests that can veto a deal from tests that only count
// toward the quorum.
type TestClass string

const (
	ClassHard TestClass = "hard"
	ClassSoft TestClass = "soft"
)

// TestResult is the outcome of a single test.
type TestResult string

const (
	ResultPass TestResult = "PASS"
	ResultFail TestResult = "FAIL"
	ResultWarn TestResult = "WARN"
	ResultNA   TestResult = "N/A"
)

// CountsAsPass reports whether the result counts toward the quorum.
func (r TestResult) CountsAsPass() bool {
	return r == ResultPass || r == ResultWarn
}

// GateStatus is the three-way classification emitted by the engine.
type GateStatus string

const (
	StatusBlocked   GateStatus = "BLOCKED"
	StatusNeedsWork GateStatus = "NEEDS_WORK"
	StatusAdvance   GateStatus = "ADVANCE"
)

// Targets and thresholds used by the metric derivation and the test battery.
const (
	TargetCoC           = 0.045
	TargetCapexMultiple = 2.0
	YOCSpread           = 0.01
	QuorumRequired      = 4
	DSCRPass            = 1.25
	DSCRWarn            = 1.15
	ExpenseRatioFloor   = 0.28
	TotalTests          = 7
)

// Binding constraint labels, in tie-break order.
const (
	ConstraintYOC   = "YOC"
	ConstraintCapex = "CapEx Multiple"
	ConstraintCoC   = "CoC"
)

// Test keys, in evaluation order.
const (
	KeyYieldOnCost        = "yield_on_cost"
	KeyCapexValueMultiple = "capex_value_multiple"
	KeyPositiveLeverage   = "positive_leverage"
	KeyCashOnCash         = "cash_on_cash"
	KeyDSCR               = "dscr"
	KeyExpenseRatio       = "expense_ratio"
	KeyMarketCapRate      = "market_cap_rate"
)

// TestKeyOrder lists every test key in the order the battery runs them.
var TestKeyOrder = []string{
	KeyYieldOnCost,
	KeyCapexValueMultiple,
	KeyPositiveLeverage,
	KeyCashOnCash,
	KeyDSCR,
	KeyExpenseRatio,
	KeyMarketCapRate,
}

// Input holds the underwriting assumptions for a deal. A nil field means the
// value has not been entered yet.
type Input struct {
	AskingPrice       *float64 `json:"asking_price,omitempty" yaml:"asking_price,omitempty"`
	DepositPct        *float64 `json:"deposit_pct,omitempty" yaml:"deposit_pct,omitempty"`
	InterestRate      *float64 `json:"interest_rate,omitempty" yaml:"interest_rate,omitempty"`
	LTC               *float64 `json:"ltc,omitempty" yaml:"ltc,omitempty"`
	CapexBudget       *float64 `json:"capex_budget,omitempty" yaml:"capex_budget,omitempty"`
	SoftCostPct       *float64 `json:"soft_cost_pct,omitempty" yaml:"soft_cost_pct,omitempty"`
	Reserves          *float64 `json:"reserves,omitempty" yaml:"reserves,omitempty"`
	SellerNOIFromOM   *float64 `json:"seller_noi_from_om,omitempty" yaml:"seller_noi_from_om,omitempty"`
	GrossIncome       *float64 `json:"gross_income,omitempty" yaml:"gross_income,omitempty"`
	OperatingExpenses *float64 `json:"operating_expenses,omitempty" yaml:"operating_expenses,omitempty"`
	Y1NOI             *float64 `json:"y1_noi,omitempty" yaml:"y1_noi,omitempty"`
	MarketCapRate     *float64 `json:"market_cap_rate,omitempty" yaml:"market_cap_rate,omitempty"`
	Y1ExitCapRate     *float64 `json:"y1_exit_cap_rate,omitempty" yaml:"y1_exit_cap_rate,omitempty"`
}

// ConstraintMaxBids holds the three candidate price caps.
type ConstraintMaxBids struct {
	MaxPriceAtYOC           *float64 `json:"max_price_at_yoc"`
	MaxPriceAtCapexMultiple *float64 `json:"max_price_at_capex_multiple"`
	MaxPriceAtCoCThreshold  *float64 `json:"max_price_at_coc_threshold"`
}

// Output holds every metric derived from an Input.
type Output struct {
	MarketCapRate           *float64          `json:"market_cap_rate"`
	SellerNOIFromOM         *float64          `json:"seller_noi_from_om"`
	AskingCapRate           *float64          `json:"asking_cap_rate"`
	AnalysisCapRate         *float64          `json:"analysis_cap_rate"`
	Y1ExitCapRate           *float64          `json:"y1_exit_cap_rate"`
	Y1DSCR                  *float64          `json:"y1_dscr"`
	Y1CapexValueMultiple    *float64          `json:"y1_capex_value_multiple"`
	Y1ExpenseRatio          *float64          `json:"y1_expense_ratio"`
	Y1CashOnCash            *float64          `json:"y1_cash_on_cash"`
	Y1YieldOnCostUnlevered  *float64          `json:"y1_yield_on_cost_unlevered"`
	ResidualSaleAtExitCap   *float64          `json:"residual_sale_at_exit_cap"`
	ProfitPotential         *float64          `json:"profit_potential"`
	MaxPriceAtYOC           *float64          `json:"max_price_at_yoc"`
	MaxPriceAtCapexMultiple *float64          `json:"max_price_at_capex_multiple"`
	MaxPriceAtCoCThreshold  *float64          `json:"max_price_at_coc_threshold"`
	MaxBidByConstraint      ConstraintMaxBids `json:"max_bid_by_constraint"`
	BOEMaxBid               *float64          `json:"boe_max_bid"`
	DeltaVsAsking           *float64          `json:"delta_vs_asking"`
	DepositAmount           *float64          `json:"deposit_amount"`
	BindingConstraint       *string           `json:"binding_constraint"`
}

// TestOutcome is the result of one test in the battery.
type TestOutcome struct {
	Key              string     `json:"key"`
	Name             string     `json:"name"`
	Class            TestClass  `json:"test_class"`
	Threshold        *float64   `json:"threshold"`
	Actual           *float64   `json:"actual"`
	ThresholdDisplay string     `json:"threshold_display"`
	ActualDisplay    string     `json:"actual_display"`
	Result           TestResult `json:"result"`
}

// Decision aggregates the test battery into a gating decision.
type Decision struct {
	Status          GateStatus `json:"status"`
	HardVetoOK      bool       `json:"hard_veto_ok"`
	PassCount       int        `json:"pass_count"`
	TotalTests      int        `json:"total_tests"`
	FailedHardTests []string   `json:"failed_hard_tests"`
	FailedSoftTests []string   `json:"failed_soft_tests"`
	WarnTests       []string   `json:"warn_tests"`
	PassTests       []string   `json:"pass_tests"`
	NATests         []string   `json:"na_tests"`
	Advance         bool       `json:"advance"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
