package boe

// Evaluate derives the BOE metrics for in, runs the test battery against them,
// and aggregates the results into a decision. Missing inputs and zero
// denominators degrade to nil metrics and N/A tests; Evaluate never panics on
// numeric input.
func Evaluate(in Input) (Output, []TestOutcome, Decision) {
	out := derive(in)
	tests := runBattery(out, in.InterestRate)
	return out, tests, Decide(tests)
}

// derive computes the Output record. Only deposit_pct, ltc, capex_budget,
// soft_cost_pct and reserves default to zero; every other missing operand
// propagates as nil.
func derive(in Input) Output {
	in = in.Clone()
	askingPrice := in.AskingPrice
	depositPct := orZero(in.DepositPct)
	interestRate := in.InterestRate
	ltc := orZero(in.LTC)
	capex := orZero(in.CapexBudget)
	softCostPct := orZero(in.SoftCostPct)
	reserves := orZero(in.Reserves)
	grossIncome := in.GrossIncome
	opex := in.OperatingExpenses

	noi := in.Y1NOI
	if noi == nil {
		noi = sub(grossIncome, opex)
	}

	var totalProjectCost *float64
	if askingPrice != nil {
		totalProjectCost = Float64(*askingPrice*(1+softCostPct) + capex + reserves)
	}
	debtAmount := mul(totalProjectCost, &ltc)
	equityRequired := sub(totalProjectCost, debtAmount)
	debtService := mul(debtAmount, interestRate)

	marketCapRate := in.MarketCapRate
	if marketCapRate == nil {
		marketCapRate = safeDiv(noi, askingPrice)
	}
	askingCapRate := safeDiv(in.SellerNOIFromOM, askingPrice)
	analysisCapRate := safeDiv(noi, askingPrice)

	exitCapRate := in.Y1ExitCapRate
	if exitCapRate == nil {
		exitCapRate = marketCapRate
	}

	dscr := safeDiv(noi, debtService)
	residualSale := safeDiv(noi, exitCapRate)

	// Undefined, not infinite, when no capex is planned: guarded on
	// capex > 0 instead of going through safeDiv.
	var capexMultiple *float64
	if residualSale != nil && askingPrice != nil && capex > 0 {
		capexMultiple = Float64((*residualSale - *askingPrice) / capex)
	}

	expenseRatio := safeDiv(opex, grossIncome)
	cashOnCash := safeDiv(sub(noi, debtService), equityRequired)
	yieldOnCost := safeDiv(noi, totalProjectCost)

	maxAtYOC := safeDiv(noi, add(exitCapRate, Float64(YOCSpread)))

	var maxAtCapex *float64
	if residualSale != nil {
		maxAtCapex = Float64(*residualSale - TargetCapexMultiple*capex)
	}

	var maxAtCoC *float64
	if noi != nil {
		coeff := orZero(interestRate)*ltc + TargetCoC*(1-ltc)
		if coeff > 0 {
			targetTotalCost := *noi / coeff
			maxAtCoC = Float64((targetTotalCost - capex - reserves) / (1 + softCostPct))
		}
	}

	maxBid, binding := bindingConstraint([]candidate{
		{label: ConstraintYOC, value: maxAtYOC},
		{label: ConstraintCapex, value: maxAtCapex},
		{label: ConstraintCoC, value: maxAtCoC},
	})

	var depositAmount *float64
	if askingPrice != nil {
		depositAmount = Float64(*askingPrice * depositPct)
	}

	return Output{
		MarketCapRate:           marketCapRate,
		SellerNOIFromOM:         in.SellerNOIFromOM,
		AskingCapRate:           askingCapRate,
		AnalysisCapRate:         analysisCapRate,
		Y1ExitCapRate:           exitCapRate,
		Y1DSCR:                  dscr,
		Y1CapexValueMultiple:    capexMultiple,
		Y1ExpenseRatio:          expenseRatio,
		Y1CashOnCash:            cashOnCash,
		Y1YieldOnCostUnlevered:  yieldOnCost,
		ResidualSaleAtExitCap:   residualSale,
		ProfitPotential:         sub(residualSale, maxBid),
		MaxPriceAtYOC:           maxAtYOC,
		MaxPriceAtCapexMultiple: maxAtCapex,
		MaxPriceAtCoCThreshold:  maxAtCoC,
		MaxBidByConstraint: ConstraintMaxBids{
			MaxPriceAtYOC:           maxAtYOC,
			MaxPriceAtCapexMultiple: maxAtCapex,
			MaxPriceAtCoCThreshold:  maxAtCoC,
		},
		BOEMaxBid:         maxBid,
		DeltaVsAsking:     sub(maxBid, askingPrice),
		DepositAmount:     depositAmount,
		BindingConstraint: binding,
	}
}

type candidate struct {
	label string
	value *float64
}

// bindingConstraint returns the smallest available candidate and its label.
// Candidates are scanned in order and only a strictly smaller value replaces
// the running minimum, so ties go to the earlier label.
func bindingConstraint(cands []candidate) (*float64, *string) {
	var (
		best  *float64
		label *string
	)
	for _, c := range cands {
		if c.value == nil {
			continue
		}
		if best == nil || *c.value < *best {
			best = Float64(*c.value)
			l := c.label
			label = &l
		}
	}
	return best, label
}

func safeDiv(n, d *float64) *float64 {
	if n == nil || d == nil || *d == 0 {
		return nil
	}
	return Float64(*n / *d)
}

func add(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return Float64(*a + *b)
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return Float64(*a - *b)
}

func mul(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return Float64(*a * *b)
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
