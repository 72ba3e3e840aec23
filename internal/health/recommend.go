package health

import "github.com/theirongolddev/fincast/internal/model"

const (
	profitabilityFloor = 60
	cashFlowFloor      = 50
	growthFloor        = 50
	efficiencyFloor    = 70
)

// Recommend returns guidance for each sub-score under its threshold.
func Recommend(hs model.HealthScore) []string {
	var recs []string
	if hs.Profitability < profitabilityFloor {
		recs = append(recs, "Profit margin is thin. Review pricing and cut low-value costs.")
	}
	if hs.CashFlow < cashFlowFloor {
		recs = append(recs, "Cash flow is negative over six months. Tighten collections and defer non-essential outflows.")
	}
	if hs.Growth < growthFloor {
		recs = append(recs, "Income is shrinking against the prior six months. Look for new revenue or reactivate past customers.")
	}
	if hs.Efficiency < efficiencyFloor {
		recs = append(recs, "Expenses consume most of income. Audit recurring spend for savings.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Financial health is strong. Keep building reserves.")
	}
	return recs
}
