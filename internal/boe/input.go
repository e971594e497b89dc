package boe

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseInput builds an Input from loosely typed values such as a decoded JSON
// body or a persisted deal record. Values that cannot be read as a finite
// number become nil; ParseInput never fails.
func ParseInput(raw map[string]any) Input {
	return Input{
		AskingPrice:       toFloat(raw["asking_price"]),
		DepositPct:        toFloat(raw["deposit_pct"]),
		InterestRate:      toFloat(raw["interest_rate"]),
		LTC:               toFloat(raw["ltc"]),
		CapexBudget:       toFloat(raw["capex_budget"]),
		SoftCostPct:       toFloat(raw["soft_cost_pct"]),
		Reserves:          toFloat(raw["reserves"]),
		SellerNOIFromOM:   toFloat(raw["seller_noi_from_om"]),
		GrossIncome:       toFloat(raw["gross_income"]),
		OperatingExpenses: toFloat(raw["operating_expenses"]),
		Y1NOI:             toFloat(raw["y1_noi"]),
		MarketCapRate:     toFloat(raw["market_cap_rate"]),
		Y1ExitCapRate:     toFloat(raw["y1_exit_cap_rate"]),
	}
}

// UnmarshalJSON accepts numbers, numeric strings and nulls for every field.
// Anything else is treated as not entered instead of failing the decode.
func (in *Input) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*in = ParseInput(raw)
	return nil
}

// UnmarshalYAML applies the same lenient coercion as UnmarshalJSON.
func (in *Input) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*in = ParseInput(raw)
	return nil
}

// Map returns the entered fields keyed by their wire names.
func (in Input) Map() map[string]any {
	m := make(map[string]any, 13)
	put := func(k string, v *float64) {
		if v != nil {
			m[k] = *v
		}
	}
	put("asking_price", in.AskingPrice)
	put("deposit_pct", in.DepositPct)
	put("interest_rate", in.InterestRate)
	put("ltc", in.LTC)
	put("capex_budget", in.CapexBudget)
	put("soft_cost_pct", in.SoftCostPct)
	put("reserves", in.Reserves)
	put("seller_noi_from_om", in.SellerNOIFromOM)
	put("gross_income", in.GrossIncome)
	put("operating_expenses", in.OperatingExpenses)
	put("y1_noi", in.Y1NOI)
	put("market_cap_rate", in.MarketCapRate)
	put("y1_exit_cap_rate", in.Y1ExitCapRate)
	return m
}

// Clone returns a deep copy of in.
func (in Input) Clone() Input {
	return Input{
		AskingPrice:       clone(in.AskingPrice),
		DepositPct:        clone(in.DepositPct),
		InterestRate:      clone(in.InterestRate),
		LTC:               clone(in.LTC),
		CapexBudget:       clone(in.CapexBudget),
		SoftCostPct:       clone(in.SoftCostPct),
		Reserves:          clone(in.Reserves),
		SellerNOIFromOM:   clone(in.SellerNOIFromOM),
		GrossIncome:       clone(in.GrossIncome),
		OperatingExpenses: clone(in.OperatingExpenses),
		Y1NOI:             clone(in.Y1NOI),
		MarketCapRate:     clone(in.MarketCapRate),
		Y1ExitCapRate:     clone(in.Y1ExitCapRate),
	}
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float64(*v)
}

func toFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		// nil, bools, nested objects and anything else.
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
