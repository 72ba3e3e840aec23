package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType is the nominal length of a budget.
type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
)

// BudgetStatus is the lifecycle state of a budget.
type BudgetStatus string

const (
	BudgetDraft     BudgetStatus = "draft"
	BudgetActive    BudgetStatus = "active"
	BudgetCompleted BudgetStatus = "completed"
	BudgetCancelled BudgetStatus = "cancelled"
)

// Budget owns a set of per-category allocations over an inclusive date window.
type Budget struct {
	ID          string
	Name        string
	PeriodType  PeriodType
	StartDate   time.Time
	EndDate     time.Time
	TotalAmount decimal.Decimal
	Status      BudgetStatus
	Allocations []Allocation
}

// DeriveEndDate returns the end date implied by a period type and start date.
func DeriveEndDate(pt PeriodType, start time.Time) (time.Time, error) {
	s := Day(start)
	switch pt {
	case PeriodMonthly:
		return MonthEnd(s), nil
	case PeriodQuarterly:
		return s.AddDate(0, 3, -1), nil
	case PeriodYearly:
		return time.Date(s.Year(), time.December, 31, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unknown period type %q", pt)
}

// StatusAt reports the effective status at now: an active budget whose end
// date has passed counts as completed.
func (b Budget) StatusAt(now time.Time) BudgetStatus {
	if b.Status == BudgetActive && Day(now).After(Day(b.EndDate)) {
		return BudgetCompleted
	}
	return b.Status
}

// DurationDays is the inclusive length of the budget window.
func (b Budget) DurationDays() int {
	return DaysBetween(b.StartDate, b.EndDate) + 1
}

// Allocation is the configured share of a budget for one category. Spend holds
// the computed cache and is the only part the engine writes.
type Allocation struct {
	BudgetID        string
	CategoryID      string
	AllocatedAmount decimal.Decimal
	AlertAt80       bool
	AlertAt100      bool
	Spend           SpendSnapshot
}

// SpendSnapshot is the refreshable cache derived from the ledger.
type SpendSnapshot struct {
	BudgetID        string
	CategoryID      string
	SpentAmount     decimal.Decimal
	LastAlertSentAt *time.Time
	RefreshedAt     time.Time
}

// AlertType names a budget threshold.
type AlertType string

const (
	AlertApproachingLimit AlertType = "approaching_limit"
	AlertExceededLimit    AlertType = "exceeded_limit"
)

// Alert is emitted when an allocation crosses a configured threshold.
type Alert struct {
	ID         string          `json:"id"`
	Type       AlertType       `json:"type"`
	BudgetID   string          `json:"budget_id"`
	CategoryID string          `json:"category_id"`
	Percentage float64         `json:"percentage"`
	Spent      decimal.Decimal `json:"spent"`
	Allocated  decimal.Decimal `json:"allocated"`
	EmittedAt  time.Time       `json:"emitted_at"`
}

// HealthStatus classifies spend pace against elapsed time.
type HealthStatus string

const (
	StatusOverBudget      HealthStatus = "over_budget"
	StatusBurningFast     HealthStatus = "burning_fast"
	StatusOnPace          HealthStatus = "on_pace"
	StatusUnderPace       HealthStatus = "under_pace"
	StatusWellUnderBudget HealthStatus = "well_under_budget"
)

// AllocationReport holds every computed metric for one allocation.
type AllocationReport struct {
	CategoryID      string
	Allocated       decimal.Decimal
	Spent           decimal.Decimal
	Remaining       decimal.Decimal
	Variance        decimal.Decimal
	SpentPct        float64
	TimeElapsedPct  float64
	DaysElapsed     int
	DurationDays    int
	BurnRate        decimal.Decimal
	ProjectedSpend  decimal.Decimal
	OnTrack         bool
	Status          HealthStatus
	Recommendations []string
}

// BudgetReport is the tracker's view of one budget at a point in time.
type BudgetReport struct {
	Budget         Budget
	AsOf           time.Time
	TotalAllocated decimal.Decimal
	TotalSpent     decimal.Decimal
	Allocations    []AllocationReport
}
