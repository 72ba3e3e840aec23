package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the calendar width of an aggregation bucket.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity accepts day/week/month (and their -ly forms).
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "day", "daily":
		return GranularityDay, nil
	case "week", "weekly":
		return GranularityWeek, nil
	case "month", "monthly", "":
		return GranularityMonth, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Next returns the start of the period following one that starts at t.
func (g Granularity) Next(t time.Time) time.Time {
	switch g {
	case GranularityDay:
		return t.AddDate(0, 0, 1)
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	default:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Label formats a period start the way buckets of this granularity are labelled.
func (g Granularity) Label(t time.Time) string {
	if g == GranularityMonth {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// PeriodBucket holds completed income/expense totals for one inclusive date range.
type PeriodBucket struct {
	Label   string
	Start   time.Time
	End     time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Net is income minus expense.
func (b PeriodBucket) Net() decimal.Decimal {
	return b.Income.Sub(b.Expense)
}

// ForecastPoint is one predicted period value. Points are derived and carry no identity.
type ForecastPoint struct {
	PeriodLabel string
	PeriodStart time.Time
	Amount      float64
	IsForecast  bool
}

// Forecast is the output of one forecaster run.
type Forecast struct {
	Method     string
	Points     []ForecastPoint
	Confidence float64
}

// Trend classifies the direction of net cash flow.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// Factor maps a trend to the sign used by cash-flow projection.
func (t Trend) Factor() float64 {
	switch t {
	case TrendImproving:
		return 1
	case TrendDeclining:
		return -1
	}
	return 0
}

// CashFlowPeriod holds one period of the cash-flow statement.
type CashFlowPeriod struct {
	Label   string
	Start   time.Time
	Income  float64
	Expense float64
	Net     float64
	Opening float64
	Closing float64
}

// CashFlowAnalysis summarises a run of periods.
type CashFlowAnalysis struct {
	Periods        []CashFlowPeriod
	OpeningBalance float64
	ClosingBalance float64
	AvgIncome      float64
	AvgExpense     float64
	AvgNet         float64
	Volatility     float64
	Trend          Trend
}

// ProjectionPoint is one month of the heuristic cash-flow projection.
type ProjectionPoint struct {
	Month   int
	Income  float64
	Expense float64
	Net     float64
	Balance float64
}

// WindowTotals are completed income/expense sums over one scoring window.
type WindowTotals struct {
	From    time.Time
	To      time.Time
	Income  float64
	Expense float64
}

// HealthScore is the composite financial health grade.
type HealthScore struct {
	AsOf            time.Time `json:"as_of"`
	Profitability   float64   `json:"profitability"`
	CashFlow        float64   `json:"cash_flow"`
	Growth          float64   `json:"growth"`
	Efficiency      float64   `json:"efficiency"`
	Overall         float64   `json:"overall"`
	Grade           string    `json:"grade"`
	Recommendations []string  `json:"recommendations"`
}

// CategoryTotal is completed spend for one category over a window.
type CategoryTotal struct {
	CategoryID   string
	Spent        decimal.Decimal
	Count        int
	SharePercent float64
}
