package boe

// runBattery evaluates the seven tests in TestKeyOrder. Every test is always
// emitted; a test whose operands are missing reports N/A.
func runBattery(out Output, interestRate *float64) []TestOutcome {
	tests := make([]TestOutcome, 0, TotalTests)

	yoc := out.Y1YieldOnCostUnlevered
	exitCap := out.Y1ExitCapRate
	tests = append(tests, TestOutcome{
		Key:              KeyYieldOnCost,
		Name:             "Yield on Cost Test",
		Class:            ClassHard,
		Threshold:        add(exitCap, Float64(YOCSpread)),
		Actual:           yoc,
		ThresholdDisplay: ">= Exit Cap + 1.00% (" + FormatPct(exitCap) + " + 1.00%)",
		ActualDisplay:    FormatPct(yoc),
		Result:           atLeast(yoc, add(exitCap, Float64(YOCSpread))),
	})

	multiple := out.Y1CapexValueMultiple
	tests = append(tests, TestOutcome{
		Key:              KeyCapexValueMultiple,
		Name:             "CapEx Value Multiple Test",
		Class:            ClassHard,
		Threshold:        Float64(TargetCapexMultiple),
		Actual:           multiple,
		ThresholdDisplay: ">= 2.00x",
		ActualDisplay:    FormatMult(multiple),
		Result:           atLeast(multiple, Float64(TargetCapexMultiple)),
	})

	leverage := ResultNA
	if positive(yoc) && positive(interestRate) {
		leverage = atLeast(yoc, interestRate)
	}
	tests = append(tests, TestOutcome{
		Key:              KeyPositiveLeverage,
		Name:             "Positive Leverage Test",
		Class:            ClassHard,
		Threshold:        clone(interestRate),
		Actual:           yoc,
		ThresholdDisplay: ">= Interest Rate (" + FormatPct(interestRate) + ")",
		ActualDisplay:    FormatPct(yoc),
		Result:           leverage,
	})

	coc := out.Y1CashOnCash
	tests = append(tests, TestOutcome{
		Key:              KeyCashOnCash,
		Name:             "Cash on Cash Test",
		Class:            ClassSoft,
		Threshold:        Float64(TargetCoC),
		Actual:           coc,
		ThresholdDisplay: ">= 4.50%",
		ActualDisplay:    FormatPct(coc),
		Result:           atLeast(coc, Float64(TargetCoC)),
	})

	dscr := out.Y1DSCR
	tests = append(tests, TestOutcome{
		Key:              KeyDSCR,
		Name:             "DSCR Test",
		Class:            ClassSoft,
		Threshold:        Float64(DSCRPass),
		Actual:           dscr,
		ThresholdDisplay: "PASS>=1.25 | WARN>=1.15 | FAIL<1.15",
		ActualDisplay:    FormatNum(dscr),
		Result:           dscrResult(dscr),
	})

	expense := out.Y1ExpenseRatio
	tests = append(tests, TestOutcome{
		Key:              KeyExpenseRatio,
		Name:             "Expense Ratio Test",
		Class:            ClassSoft,
		Threshold:        Float64(ExpenseRatioFloor),
		Actual:           expense,
		ThresholdDisplay: ">= 28.00%",
		ActualDisplay:    FormatPct(expense),
		Result:           atLeast(expense, Float64(ExpenseRatioFloor)),
	})

	marketCap := out.MarketCapRate
	askingCap := out.AskingCapRate
	market := ResultNA
	if positive(marketCap) && positive(askingCap) {
		market = atLeast(marketCap, askingCap)
	}
	tests = append(tests, TestOutcome{
		Key:              KeyMarketCapRate,
		Name:             "Market Cap Rate Test",
		Class:            ClassSoft,
		Threshold:        askingCap,
		Actual:           marketCap,
		ThresholdDisplay: ">= Asking Cap Rate (" + FormatPct(askingCap) + ")",
		ActualDisplay:    FormatPct(marketCap),
		Result:           market,
	})

	return tests
}

func atLeast(actual, threshold *float64) TestResult {
	if actual == nil || threshold == nil {
		return ResultNA
	}
	if *actual >= *threshold {
		return ResultPass
	}
	return ResultFail
}

func dscrResult(dscr *float64) TestResult {
	switch {
	case !positive(dscr):
		return ResultNA
	case *dscr >= DSCRPass:
		return ResultPass
	case *dscr >= DSCRWarn:
		return ResultWarn
	default:
		return ResultFail
	}
}

func positive(v *float64) bool { return v != nil && *v > 0 }

// Decide aggregates outcomes into a Decision. A hard test blocks only when it
// reaches a verdict other than PASS; N/A means no data and never vetoes.
func Decide(tests []TestOutcome) Decision {
	d := Decision{
		HardVetoOK:      true,
		TotalTests:      len(tests),
		FailedHardTests: []string{},
		FailedSoftTests: []string{},
		WarnTests:       []string{},
		PassTests:       []string{},
		NATests:         []string{},
	}

	for _, t := range tests {
		if t.Class == ClassHard && t.Result != ResultPass && t.Result != ResultNA {
			d.HardVetoOK = false
		}
		if t.Result.CountsAsPass() {
			d.PassCount++
		}

		switch t.Result {
		case ResultFail:
			if t.Class == ClassHard {
				d.FailedHardTests = append(d.FailedHardTests, t.Key)
			} else {
				d.FailedSoftTests = append(d.FailedSoftTests, t.Key)
			}
		case ResultWarn:
			d.WarnTests = append(d.WarnTests, t.Key)
		case ResultPass:
			d.PassTests = append(d.PassTests, t.Key)
		case ResultNA:
			d.NATests = append(d.NATests, t.Key)
		}
	}

	d.Advance = d.HardVetoOK && d.PassCount >= QuorumRequired
	d.Status = StatusFor(d.HardVetoOK, d.Advance)
	return d
}

// StatusFor maps the veto and quorum outcome onto the three gate tiers.
func StatusFor(hardVetoOK, advance bool) GateStatus {
	switch {
	case !hardVetoOK:
		return StatusBlocked
	case advance:
		return StatusAdvance
	default:
		return StatusNeedsWork
	}
}
