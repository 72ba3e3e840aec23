package cashflow

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

func buckets(pairs ...[2]int64) []model.PeriodBucket {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PeriodBucket, len(pairs))
	for i, p := range pairs {
		s := start.AddDate(0, i, 0)
		out[i] = model.PeriodBucket{
			Label:   s.Format("2006-01"),
			Start:   s,
			End:     model.MonthEnd(s),
			Income:  decimal.NewFromInt(p[0]),
			Expense: decimal.NewFromInt(p[1]),
		}
	}
	return out
}

func TestAnalyzeBalancesAndAverages(t *testing.T) {
	a := Analyze(buckets([2]int64{1000, 800}, [2]int64{1000, 600}, [2]int64{1300, 900}), 500)

	if len(a.Periods) != 3 {
		t.Fatalf("got %d periods", len(a.Periods))
	}
	if a.Periods[0].Opening != 500 || a.Periods[0].Closing != 700 {
		t.Fatalf("first period balances %+v", a.Periods[0])
	}
	if a.Periods[1].Opening != a.Periods[0].Closing {
		t.Fatal("balances not chained")
	}
	if a.ClosingBalance != 1500 {
		t.Fatalf("closing = %v, want 1500", a.ClosingBalance)
	}
	if a.AvgIncome != 1100 || a.AvgNet != 1000.0/3 {
		t.Fatalf("averages income=%v net=%v", a.AvgIncome, a.AvgNet)
	}
	// nets 200, 400, 400
	want := math.Sqrt((math.Pow(200-1000.0/3, 2) + 2*math.Pow(400-1000.0/3, 2)) / 3)
	if math.Abs(a.Volatility-want) > 1e-9 {
		t.Fatalf("volatility = %v, want %v", a.Volatility, want)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(nil, 250)
	if a.ClosingBalance != 250 || a.Trend != model.TrendStable || a.Volatility != 0 {
		t.Fatalf("empty analysis = %+v", a)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name string
		nets []float64
		want model.Trend
	}{
		{"improving", []float64{100, 100, 100, 200, 200, 200}, model.TrendImproving},
		{"declining", []float64{200, 200, 200, 100, 100, 100}, model.TrendDeclining},
		{"within band", []float64{100, 100, 100, 105, 105, 105}, model.TrendStable},
		{"single period", []float64{100}, model.TrendStable},
		{"two periods", []float64{100, 300}, model.TrendStable},
		{"negative improving", []float64{-100, -100, -100, -50, -50, -50}, model.TrendImproving},
		{"from zero", []float64{0, 0, 0, 10, 10, 10}, model.TrendImproving},
	}
	for _, tt := range tests {
		if got := ClassifyTrend(tt.nets); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestProject(t *testing.T) {
	a := model.CashFlowAnalysis{
		AvgIncome:      1000,
		AvgExpense:     800,
		ClosingBalance: 100,
		Trend:          model.TrendImproving,
	}
	pts, err := Project(a, 2)
	if err != nil {
		t.Fatal(err)
	}
	// month 1: 1100 - 840, month 2: 1200 - 880
	if !near(pts[0].Income, 1100) || !near(pts[0].Expense, 840) || !near(pts[0].Balance, 360) {
		t.Fatalf("month 1 = %+v", pts[0])
	}
	if !near(pts[1].Net, 320) || !near(pts[1].Balance, 680) {
		t.Fatalf("month 2 = %+v", pts[1])
	}

	a.Trend = model.TrendStable
	pts, _ = Project(a, 3)
	for _, p := range pts {
		if p.Income != 1000 || p.Expense != 800 {
			t.Fatalf("stable projection drifted: %+v", p)
		}
	}

	a.Trend = model.TrendDeclining
	pts, _ = Project(a, 12)
	if pts[11].Income != 0 {
		t.Fatalf("income should floor at 0, got %v", pts[11].Income)
	}
}

func TestProjectRejectsNonPositive(t *testing.T) {
	if _, err := Project(model.CashFlowAnalysis{}, 0); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
