// Package model defines domain types for ledger transactions, period metrics, and budgets.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind distinguishes money coming in from money going out.
type TxKind string

const (
	Income  TxKind = "income"
	Expense TxKind = "expense"
)

// TxStatus is the settlement state of a ledger transaction.
type TxStatus string

const (
	Pending   TxStatus = "pending"
	Completed TxStatus = "completed"
	Cancelled TxStatus = "cancelled"
	Refunded  TxStatus = "refunded"
)

// Transaction is one ledger row as seen by the engine. Completed rows are immutable.
type Transaction struct {
	ID         string
	Kind       TxKind
	Amount     decimal.Decimal
	Currency   string
	OccurredOn time.Time
	Status     TxStatus
	CategoryID string
}

// TxQuery filters ledger reads. Empty fields match everything; From and To are
// inclusive calendar dates.
type TxQuery struct {
	Kind       TxKind
	Status     TxStatus
	CategoryID string
	From       time.Time
	To         time.Time
}

// Matches reports whether tx passes every filter in q.
func (q TxQuery) Matches(tx Transaction) bool {
	if q.Kind != "" && tx.Kind != q.Kind {
		return false
	}
	if q.Status != "" && tx.Status != q.Status {
		return false
	}
	if q.CategoryID != "" && tx.CategoryID != q.CategoryID {
		return false
	}
	day := Day(tx.OccurredOn)
	if !q.From.IsZero() && day.Before(Day(q.From)) {
		return false
	}
	if !q.To.IsZero() && day.After(Day(q.To)) {
		return false
	}
	return true
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// MonthEnd returns the last calendar day of t's month.
func MonthEnd(t time.Time) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// CompletedMonths returns the first and last day of the n calendar months
// that have fully elapsed at now. now's own month counts only when now is its
// last day, so a partial month never enters a history window. n < 1 is 1.
func CompletedMonths(now time.Time, n int) (time.Time, time.Time) {
	n = max(n, 1)
	end := Day(now)
	if !end.Equal(MonthEnd(end)) {
		end = time.Date(end.Year(), end.Month(), 0, 0, 0, 0, 0, time.UTC)
	}
	start := time.Date(end.Year(), end.Month()-time.Month(n-1), 1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
