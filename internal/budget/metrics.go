package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/stats"
)

// Pace thresholds on spend efficiency (spent fraction / elapsed fraction).
const (
	burningFastEfficiency = 1.2
	onPaceEfficiency      = 1.0
	underPaceEfficiency   = 0.8
)

// DaysElapsed is min(now, end) - start + 1, floored at 1.
func DaysElapsed(start, end, now time.Time) int {
	last := model.Day(now)
	if e := model.Day(end); last.After(e) {
		last = e
	}
	d := model.DaysBetween(start, last) + 1
	if d < 1 {
		return 1
	}
	return d
}

// BurnRate is spend per elapsed day of the budget window.
func BurnRate(spent decimal.Decimal, start, end, now time.Time) decimal.Decimal {
	return spent.Div(decimal.NewFromInt(int64(DaysElapsed(start, end, now))))
}

// ProjectedSpend extrapolates the burn rate over the whole window.
func ProjectedSpend(burn decimal.Decimal, durationDays int) decimal.Decimal {
	return burn.Mul(decimal.NewFromInt(int64(durationDays)))
}

// IsOnTrack reports whether projected spend stays within the allocation.
func IsOnTrack(projected, allocated decimal.Decimal) bool {
	return projected.LessThanOrEqual(allocated)
}

// SpentFraction is spent/allocated, or 0 when nothing is allocated.
func SpentFraction(spent, allocated decimal.Decimal) float64 {
	if !allocated.IsPositive() {
		return 0
	}
	return spent.Div(allocated).InexactFloat64()
}

// TimeElapsedFraction is the share of the window that has passed at now, in [0, 1].
func TimeElapsedFraction(start, end, now time.Time) float64 {
	total := model.DaysBetween(start, end) + 1
	if total <= 0 || model.Day(now).Before(model.Day(start)) {
		return 0
	}
	elapsed := DaysElapsed(start, end, now)
	return stats.Clamp(float64(elapsed)/float64(total), 0, 1)
}

// Classify maps spent and elapsed fractions to a health status.
func Classify(spentPct, timeElapsedPct float64) model.HealthStatus {
	if spentPct >= 1 {
		return model.StatusOverBudget
	}
	eff := stats.SafeDiv(spentPct, timeElapsedPct, 0)
	switch {
	case eff > burningFastEfficiency:
		return model.StatusBurningFast
	case eff > onPaceEfficiency:
		return model.StatusOnPace
	case eff > underPaceEfficiency:
		return model.StatusUnderPace
	}
	return model.StatusWellUnderBudget
}

// Evaluate computes every metric for one allocation of b at now.
func Evaluate(b model.Budget, a model.Allocation, now time.Time) model.AllocationReport {
	spent := a.Spend.SpentAmount
	burn := BurnRate(spent, b.StartDate, b.EndDate, now)
	duration := b.DurationDays()
	projected := ProjectedSpend(burn, duration)

	elapsed := 0
	if !model.Day(now).Before(model.Day(b.StartDate)) {
		elapsed = DaysElapsed(b.StartDate, b.EndDate, now)
	}

	r := model.AllocationReport{
		CategoryID:     a.CategoryID,
		Allocated:      a.AllocatedAmount,
		Spent:          spent,
		Remaining:      decimal.Max(a.AllocatedAmount.Sub(spent), decimal.Zero),
		Variance:       spent.Sub(a.AllocatedAmount),
		SpentPct:       SpentFraction(spent, a.AllocatedAmount),
		TimeElapsedPct: TimeElapsedFraction(b.StartDate, b.EndDate, now),
		DaysElapsed:    elapsed,
		DurationDays:   duration,
		BurnRate:       burn,
		ProjectedSpend: projected,
		OnTrack:        IsOnTrack(projected, a.AllocatedAmount),
	}
	r.Status = Classify(r.SpentPct, r.TimeElapsedPct)
	r.Recommendations = Recommend(r)
	return r
}

// Report evaluates every allocation of b.
func Report(b model.Budget, now time.Time) model.BudgetReport {
	rep := model.BudgetReport{
		Budget:         b,
		AsOf:           now,
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
		Allocations:    make([]model.AllocationReport, 0, len(b.Allocations)),
	}
	for _, a := range b.Allocations {
		r := Evaluate(b, a, now)
		rep.TotalAllocated = rep.TotalAllocated.Add(r.Allocated)
		rep.TotalSpent = rep.TotalSpent.Add(r.Spent)
		rep.Allocations = append(rep.Allocations, r)
	}
	return rep
}
