package boe

// Map flattens the Output into wire-name keys. Nested max bids are exposed
// under max_bid_by_constraint as a map of their own.
func (o Output) Map() map[string]any {
	m := make(map[string]any, 20)
	for _, k := range OutputKeys {
		v, _ := o.Lookup(k)
		m[k] = v
	}
	m["max_bid_by_constraint"] = map[string]any{
		"max_price_at_yoc":            deref(o.MaxBidByConstraint.MaxPriceAtYOC),
		"max_price_at_capex_multiple": deref(o.MaxBidByConstraint.MaxPriceAtCapexMultiple),
		"max_price_at_coc_threshold":  deref(o.MaxBidByConstraint.MaxPriceAtCoCThreshold),
	}
	return m
}

// OutputKeys lists the scalar Output fields by wire name.
var OutputKeys = []string{
	"market_cap_rate",
	"seller_noi_from_om",
	"asking_cap_rate",
	"analysis_cap_rate",
	"y1_exit_cap_rate",
	"y1_dscr",
	"y1_capex_value_multiple",
	"y1_expense_ratio",
	"y1_cash_on_cash",
	"y1_yield_on_cost_unlevered",
	"residual_sale_at_exit_cap",
	"profit_potential",
	"max_price_at_yoc",
	"max_price_at_capex_multiple",
	"max_price_at_coc_threshold",
	"boe_max_bid",
	"delta_vs_asking",
	"deposit_amount",
	"binding_constraint",
}

// Lookup returns the value of a scalar Output field by wire name. The value
// is nil, a float64, or a string for binding_constraint. ok is false for an
// unknown key.
func (o Output) Lookup(key string) (value any, ok bool) {
	var p *float64
	switch key {
	case "market_cap_rate":
		p = o.MarketCapRate
	case "seller_noi_from_om":
		p = o.SellerNOIFromOM
	case "asking_cap_rate":
		p = o.AskingCapRate
	case "analysis_cap_rate":
		p = o.AnalysisCapRate
	case "y1_exit_cap_rate":
		p = o.Y1ExitCapRate
	case "y1_dscr":
		p = o.Y1DSCR
	case "y1_capex_value_multiple":
		p = o.Y1CapexValueMultiple
	case "y1_expense_ratio":
		p = o.Y1ExpenseRatio
	case "y1_cash_on_cash":
		p = o.Y1CashOnCash
	case "y1_yield_on_cost_unlevered":
		p = o.Y1YieldOnCostUnlevered
	case "residual_sale_at_exit_cap":
		p = o.ResidualSaleAtExitCap
	case "profit_potential":
		p = o.ProfitPotential
	case "max_price_at_yoc":
		p = o.MaxPriceAtYOC
	case "max_price_at_capex_multiple":
		p = o.MaxPriceAtCapexMultiple
	case "max_price_at_coc_threshold":
		p = o.MaxPriceAtCoCThreshold
	case "boe_max_bid":
		p = o.BOEMaxBid
	case "delta_vs_asking":
		p = o.DeltaVsAsking
	case "deposit_amount":
		p = o.DepositAmount
	case "binding_constraint":
		if o.BindingConstraint == nil {
			return nil, true
		}
		return *o.BindingConstraint, true
	default:
		return nil, false
	}
	return deref(p), true
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
