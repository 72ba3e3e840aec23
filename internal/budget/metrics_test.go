package budget

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDaysElapsed(t *testing.T) {
	start, end := day("2024-01-01"), day("2024-01-31")
	tests := []struct {
		now  string
		want int
	}{
		{"2023-12-15", 1},
		{"2024-01-01", 1},
		{"2024-01-10", 10},
		{"2024-01-31", 31},
		{"2024-03-01", 31},
	}
	for _, tt := range tests {
		if got := DaysElapsed(start, end, day(tt.now)); got != tt.want {
			t.Errorf("DaysElapsed(now=%s) = %d, want %d", tt.now, got, tt.want)
		}
	}
}

func TestBurnRateMonotonicInSpent(t *testing.T) {
	start, end, now := day("2024-01-01"), day("2024-01-31"), day("2024-01-10")
	prevBurn, prevProj := decimal.Zero, decimal.Zero
	for spent := int64(0); spent <= 2000; spent += 125 {
		burn := BurnRate(dec(spent), start, end, now)
		proj := ProjectedSpend(burn, 31)
		if burn.LessThan(prevBurn) || proj.LessThan(prevProj) {
			t.Fatalf("not monotonic at spent=%d: burn %s < %s", spent, burn, prevBurn)
		}
		prevBurn, prevProj = burn, proj
	}

	burn := BurnRate(dec(500), start, end, now)
	if !burn.Equal(dec(50)) {
		t.Fatalf("burn = %s, want 50", burn)
	}
	if !ProjectedSpend(burn, 31).Equal(dec(1550)) {
		t.Fatal("projected spend mismatch")
	}
	if IsOnTrack(dec(1550), dec(1500)) || !IsOnTrack(dec(1500), dec(1500)) {
		t.Fatal("IsOnTrack boundary wrong")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		spent, elapsed float64
		want           model.HealthStatus
	}{
		{1.0, 0.5, model.StatusOverBudget},
		{1.5, 1.0, model.StatusOverBudget},
		{0.7, 0.5, model.StatusBurningFast},
		{0.55, 0.5, model.StatusOnPace},
		{0.45, 0.5, model.StatusUnderPace},
		{0.2, 0.5, model.StatusWellUnderBudget},
		{0.5, 0, model.StatusWellUnderBudget},
	}
	for _, tt := range tests {
		if got := Classify(tt.spent, tt.elapsed); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tt.spent, tt.elapsed, got, tt.want)
		}
	}
}

func TestEvaluateAndRecommend(t *testing.T) {
	b := model.Budget{
		ID: "b1", PeriodType: model.PeriodMonthly, Status: model.BudgetActive,
		StartDate: day("2024-04-01"), EndDate: day("2024-04-30"),
	}
	a := model.Allocation{
		CategoryID: "food", AllocatedAmount: dec(300),
		Spend: model.SpendSnapshot{SpentAmount: dec(200)},
	}
	r := Evaluate(b, a, day("2024-04-10"))

	if r.DaysElapsed != 10 || r.DurationDays != 30 {
		t.Fatalf("days = %d/%d", r.DaysElapsed, r.DurationDays)
	}
	if !r.BurnRate.Equal(dec(20)) || !r.ProjectedSpend.Equal(dec(600)) || r.OnTrack {
		t.Fatalf("burn=%s projected=%s onTrack=%v", r.BurnRate, r.ProjectedSpend, r.OnTrack)
	}
	if r.Status != model.StatusBurningFast {
		t.Fatalf("status = %s", r.Status)
	}
	if !r.Remaining.Equal(dec(100)) || !r.Variance.Equal(dec(-100)) {
		t.Fatalf("remaining=%s variance=%s", r.Remaining, r.Variance)
	}
	if len(r.Recommendations) != 2 {
		t.Fatalf("recommendations = %q", r.Recommendations)
	}

	over := Recommend(model.AllocationReport{CategoryID: "rent", Status: model.StatusOverBudget, Variance: dec(50)})
	if len(over) != 1 || over[0] == "" {
		t.Fatalf("over budget recommendations = %q", over)
	}
}

func TestReportTotals(t *testing.T) {
	b := model.Budget{
		ID: "b1", StartDate: day("2024-01-01"), EndDate: day("2024-01-31"),
		Allocations: []model.Allocation{
			{CategoryID: "a", AllocatedAmount: dec(100), Spend: model.SpendSnapshot{SpentAmount: dec(10)}},
			{CategoryID: "b", AllocatedAmount: dec(200), Spend: model.SpendSnapshot{SpentAmount: dec(30)}},
		},
	}
	rep := Report(b, day("2024-01-15"))
	if !rep.TotalAllocated.Equal(dec(300)) || !rep.TotalSpent.Equal(dec(40)) || len(rep.Allocations) != 2 {
		t.Fatalf("report totals %+v", rep)
	}
}

func TestValidateAndLifecycle(t *testing.T) {
	b := model.Budget{ID: "q1", PeriodType: model.PeriodQuarterly, StartDate: day("2024-01-01")}
	if err := Normalize(&b); err != nil {
		t.Fatal(err)
	}
	if !b.EndDate.Equal(day("2024-03-31")) || b.Status != model.BudgetDraft {
		t.Fatalf("normalized budget %+v", b)
	}

	b.Allocations = []model.Allocation{{CategoryID: "x", AllocatedAmount: dec(-1)}}
	if err := Validate(b); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("negative allocation: %v", err)
	}

	if err := Complete(&b); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("draft -> completed should fail, got %v", err)
	}
	if err := Activate(&b); err != nil || b.Status != model.BudgetActive {
		t.Fatalf("activate: %v (%s)", err, b.Status)
	}
	if err := Cancel(&b); err != nil || b.Status != model.BudgetCancelled {
		t.Fatalf("cancel: %v (%s)", err, b.Status)
	}
	if err := Activate(&b); err == nil {
		t.Fatal("cancelled budget re-activated")
	}
}
