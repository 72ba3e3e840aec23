package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/model"
)

// Recommend turns a computed allocation report into guidance. It reads only
// fields of r and never recomputes metrics.
func Recommend(r model.AllocationReport) []string {
	var recs []string
	cat := r.CategoryID

	switch r.Status {
	case model.StatusOverBudget:
		recs = append(recs, fmt.Sprintf("%s is over budget by %s. Pause discretionary spending or move funds from another category.",
			cat, r.Variance.StringFixed(2)))
	case model.StatusBurningFast:
		recs = append(recs, fmt.Sprintf("%s is burning fast: %.0f%% spent with %.0f%% of the period elapsed.",
			cat, r.SpentPct*100, r.TimeElapsedPct*100))
	case model.StatusOnPace:
		if !r.OnTrack {
			recs = append(recs, fmt.Sprintf("%s is slightly ahead of pace; projected spend %s exceeds the %s allocation.",
				cat, r.ProjectedSpend.StringFixed(2), r.Allocated.StringFixed(2)))
		}
	case model.StatusWellUnderBudget:
		if r.TimeElapsedPct >= 0.5 && r.Remaining.IsPositive() {
			recs = append(recs, fmt.Sprintf("%s is well under budget; %s could be reallocated.",
				cat, r.Remaining.StringFixed(2)))
		}
	}

	daysLeft := r.DurationDays - r.DaysElapsed
	if daysLeft > 0 && r.Remaining.IsPositive() && r.Status != model.StatusWellUnderBudget && r.Status != model.StatusUnderPace {
		daily := r.Remaining.Div(decimal.NewFromInt(int64(daysLeft)))
		recs = append(recs, fmt.Sprintf("Keep %s spending under %s per day for the remaining %d days.",
			cat, daily.StringFixed(2), daysLeft))
	}

	if len(recs) == 0 {
		recs = append(recs, fmt.Sprintf("%s is on track.", cat))
	}
	return recs
}
