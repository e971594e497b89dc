package parity

import (
	"fmt"
	"math"

	"github.com/sells-group/underwriting-cli/internal/boe"
)

// Tolerance bounds the absolute difference accepted between engine and
// reference values.
type Tolerance struct {
	PctAbs     float64
	DollarsAbs float64
}

// DefaultTolerance is 0.1 percentage point for ratios and $5 for dollars.
var DefaultTolerance = Tolerance{PctAbs: 0.001, DollarsAbs: 5.0}

var percentKeys = map[string]bool{
	"market_cap_rate":            true,
	"asking_cap_rate":            true,
	"analysis_cap_rate":          true,
	"y1_exit_cap_rate":           true,
	"y1_expense_ratio":           true,
	"y1_cash_on_cash":            true,
	"y1_yield_on_cost_unlevered": true,
}

var dollarKeys = map[string]bool{
	"seller_noi_from_om":          true,
	"residual_sale_at_exit_cap":   true,
	"profit_potential":            true,
	"max_price_at_yoc":            true,
	"max_price_at_capex_multiple": true,
	"max_price_at_coc_threshold":  true,
	"boe_max_bid":                 true,
	"delta_vs_asking":             true,
	"deposit_amount":              true,
}

// For returns the tolerance that applies to an output key. Keys that are
// neither percent nor dollar typed use the percent tolerance.
func (t Tolerance) For(key string) float64 {
	if dollarKeys[key] {
		return t.DollarsAbs
	}
	return t.PctAbs
}

// CompareCase evaluates c and returns one message per mismatch against its
// expected block. A case without an expected block never mismatches.
func CompareCase(c Case, tol Tolerance) []string {
	if c.Expected == nil {
		return nil
	}
	out, tests, dec := boe.Evaluate(c.Inputs)
	exp := c.Expected

	errs := compareOutputs(c.Name, out, exp.Outputs, tol)

	actual := make(map[string]string, len(tests))
	for _, t := range tests {
		actual[t.Key] = string(t.Result)
	}
	for _, key := range sortedKeys(exp.Tests) {
		want := exp.Tests[key]
		got, ok := actual[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s test %s: expected %s got nil", c.Name, key, want))
			continue
		}
		if got != want {
			errs = append(errs, fmt.Sprintf("%s test %s: expected %s got %s", c.Name, key, want, got))
		}
	}

	if dec.HardVetoOK != exp.Decision.HardVetoOK {
		errs = append(errs, fmt.Sprintf("%s hard_veto_ok expected %t got %t", c.Name, exp.Decision.HardVetoOK, dec.HardVetoOK))
	}
	if dec.PassCount != exp.Decision.PassCount {
		errs = append(errs, fmt.Sprintf("%s pass_count expected %d got %d", c.Name, exp.Decision.PassCount, dec.PassCount))
	}
	if dec.Advance != exp.Decision.Advance {
		errs = append(errs, fmt.Sprintf("%s advance expected %t got %t", c.Name, exp.Decision.Advance, dec.Advance))
	}

	if show(strPtr(out.BindingConstraint)) != show(strPtr(exp.BindingConstraint)) {
		errs = append(errs, fmt.Sprintf("%s binding_constraint expected %s got %s",
			c.Name, show(strPtr(exp.BindingConstraint)), show(strPtr(out.BindingConstraint))))
	}
	return errs
}

func compareOutputs(name string, out boe.Output, expected map[string]any, tol Tolerance) []string {
	var errs []string
	for _, key := range sortedKeys(expected) {
		want := expected[key]
		got, _ := out.Lookup(key)
		if msg, ok := compareValue(key, want, got, tol); !ok {
			errs = append(errs, fmt.Sprintf("%s output %s: %s", name, key, msg))
		}
	}
	return errs
}

// compareValue applies the tolerance for key. nil and string values must
// match exactly.
func compareValue(key string, want, got any, tol Tolerance) (string, bool) {
	if want == nil || got == nil {
		if want != nil || got != nil {
			return fmt.Sprintf("expected %s got %s", show(want), show(got)), false
		}
		return "", true
	}

	wf, wok := asFloat(want)
	gf, gok := asFloat(got)
	if !wok || !gok {
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return fmt.Sprintf("expected %s got %s", show(want), show(got)), false
		}
		return "", true
	}

	limit := tol.For(key)
	if diff := math.Abs(gf - wf); diff > limit {
		return fmt.Sprintf("diff %g exceeds %g", diff, limit), false
	}
	return "", true
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func show(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(v)
}
