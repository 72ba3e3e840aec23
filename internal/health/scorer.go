// Package health grades overall financial health from windowed ledger totals.
package health

import (
	"time"

	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/stats"
)

// Windows are the three scoring windows relative to an as-of date. Each is
// inclusive and ends on the day its successor starts minus one.
type Windows struct {
	TrailingMonth model.WindowTotals
	Trailing6     model.WindowTotals
	Prior6        model.WindowTotals
}

// WindowsAt lays out the scoring windows ending at asOf with zero totals:
// (asOf-1 month, asOf], (asOf-6 months, asOf] and the six months before that.
func WindowsAt(asOf time.Time) Windows {
	end := model.Day(asOf)
	monthStart := monthsBack(end, 1).AddDate(0, 0, 1)
	sixStart := monthsBack(end, 6).AddDate(0, 0, 1)
	priorEnd := sixStart.AddDate(0, 0, -1)
	priorStart := monthsBack(end, 12).AddDate(0, 0, 1)
	return Windows{
		TrailingMonth: model.WindowTotals{From: monthStart, To: end},
		Trailing6:     model.WindowTotals{From: sixStart, To: end},
		Prior6:        model.WindowTotals{From: priorStart, To: priorEnd},
	}
}

// monthsBack steps t back n calendar months, clamping to the target month's
// last day so Mar 31 minus one month is Feb 29, not Mar 2.
func monthsBack(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := model.MonthEnd(first); t.Day() > last.Day() {
		return last
	}
	return first.AddDate(0, 0, t.Day()-1)
}

// Profitability is the trailing-month net margin in percent; 0 without income.
func Profitability(m model.WindowTotals) float64 {
	if m.Income == 0 {
		return 0
	}
	return stats.Clamp((m.Income-m.Expense)/m.Income*100, 0, 100)
}

// CashFlow scores average net flow against average income over six months,
// centred on 50; 50 without income.
func CashFlow(six model.WindowTotals) float64 {
	if six.Income == 0 {
		return 50
	}
	// Averages over the same number of months cancel to the window totals.
	return stats.Clamp((six.Income-six.Expense)/six.Income*100+50, 0, 100)
}

// Growth scores six-month income growth against the prior six months.
func Growth(current, prior model.WindowTotals) float64 {
	if prior.Income == 0 {
		if current.Income > 0 {
			return 75
		}
		return 50
	}
	rate := (current.Income - prior.Income) / prior.Income * 100
	return stats.Clamp(50+rate, 0, 100)
}

// Efficiency is 100 minus the trailing-month expense ratio; 50 without income.
func Efficiency(m model.WindowTotals) float64 {
	if m.Income == 0 {
		return 50
	}
	return stats.Clamp(100-m.Expense/m.Income*100, 0, 100)
}

// Grade maps an overall score to a letter.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	}
	return "F"
}

// Score combines the four sub-scores into an unweighted overall grade.
func Score(asOf time.Time, w Windows) model.HealthScore {
	hs := model.HealthScore{
		AsOf:          asOf,
		Profitability: Profitability(w.TrailingMonth),
		CashFlow:      CashFlow(w.Trailing6),
		Growth:        Growth(w.Trailing6, w.Prior6),
		Efficiency:    Efficiency(w.TrailingMonth),
	}
	hs.Overall = (hs.Profitability + hs.CashFlow + hs.Growth + hs.Efficiency) / 4
	hs.Grade = Grade(hs.Overall)
	hs.Recommendations = Recommend(hs)
	return hs
}
