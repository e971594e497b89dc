package gate

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// StatusCount is the number of deals in one effective status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// BindingCount is the number of deals bound by one constraint.
type BindingCount struct {
	BindingConstraint string `json:"binding_constraint"`
	Count             int    `json:"count"`
}

// Portfolio aggregates gate summaries across deals.
type Portfolio struct {
	PayloadVersion       string         `json:"portfolio_payload_version"`
	DealCount            int            `json:"deal_count"`
	StatusCounts         []StatusCount  `json:"status_counts"`
	AvgICScore           *float64       `json:"avg_ic_score"`
	ICScoreStdDev        *float64       `json:"ic_score_std_dev"`
	OverrideCount        int            `json:"override_count"`
	OverrideFrequencyPct float64        `json:"override_frequency_pct"`
	BindingDistribution  []BindingCount `json:"binding_constraint_distribution"`
}

// BuildPortfolio rolls up summaries. Statuses are ordered by StatusSortKey
// and binding constraints by label.
func BuildPortfolio(summaries []Summary) Portfolio {
	statusCounts := map[string]int{}
	bindingCounts := map[string]int{}
	overrides := 0
	scores := make([]float64, 0, len(summaries))

	for _, s := range summaries {
		statusCounts[s.EffectiveStatus]++
		if s.HasOverride {
			overrides++
		}
		scores = append(scores, float64(s.ICScore))
		if b := s.Explainability.BindingConstraint; b != nil && *b != "" {
			bindingCounts[*b]++
		}
	}

	p := Portfolio{
		PayloadVersion:      PayloadVersion,
		DealCount:           len(summaries),
		StatusCounts:        []StatusCount{},
		OverrideCount:       overrides,
		BindingDistribution: []BindingCount{},
	}

	statuses := make([]string, 0, len(statusCounts))
	for k := range statusCounts {
		statuses = append(statuses, k)
	}
	slices.SortFunc(statuses, func(a, b string) int {
		if d := StatusSortKey(a) - StatusSortKey(b); d != 0 {
			return d
		}
		return cmp.Compare(a, b)
	})
	for _, k := range statuses {
		p.StatusCounts = append(p.StatusCounts, StatusCount{Status: k, Count: statusCounts[k]})
	}

	for _, k := range sortedKeys(bindingCounts) {
		p.BindingDistribution = append(p.BindingDistribution, BindingCount{BindingConstraint: k, Count: bindingCounts[k]})
	}

	if len(summaries) > 0 {
		p.OverrideFrequencyPct = float64(overrides) / float64(len(summaries)) * 100
		mean, std := stat.MeanStdDev(scores, nil)
		p.AvgICScore = &mean
		if len(scores) > 1 {
			p.ICScoreStdDev = &std
		}
	}
	return p
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
