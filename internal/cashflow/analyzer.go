// Package cashflow builds period cash-flow statements and a simple
// trend-compounded projection. The projection is intentionally a different,
// simpler model than package forecast and the two are not reconciled.
package cashflow

import (
	"math"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/stats"
)

const (
	// trendWindow is how many periods at each end of the series are compared.
	trendWindow = 3
	// trendBand is the relative change needed to leave Stable.
	trendBand = 0.1

	incomeGrowthStep  = 0.10
	expenseGrowthStep = 0.05
)

// Analyze computes per-period flows, running balances from opening, averages,
// volatility (population stddev of net) and the net trend.
func Analyze(buckets []model.PeriodBucket, opening float64) model.CashFlowAnalysis {
	a := model.CashFlowAnalysis{
		OpeningBalance: opening,
		ClosingBalance: opening,
		Trend:          model.TrendStable,
	}
	if len(buckets) == 0 {
		return a
	}

	incomes := make([]float64, len(buckets))
	expenses := make([]float64, len(buckets))
	nets := make([]float64, len(buckets))
	balance := opening

	a.Periods = make([]model.CashFlowPeriod, len(buckets))
	for i, b := range buckets {
		inc := b.Income.InexactFloat64()
		exp := b.Expense.InexactFloat64()
		net := b.Net().InexactFloat64()

		p := model.CashFlowPeriod{
			Label:   b.Label,
			Start:   b.Start,
			Income:  inc,
			Expense: exp,
			Net:     net,
			Opening: balance,
		}
		balance += net
		p.Closing = balance
		a.Periods[i] = p

		incomes[i], expenses[i], nets[i] = inc, exp, net
	}

	a.ClosingBalance = balance
	a.AvgIncome = stats.Mean(incomes)
	a.AvgExpense = stats.Mean(expenses)
	a.AvgNet = stats.Mean(nets)
	a.Volatility = stats.PopStdDev(nets)
	a.Trend = ClassifyTrend(nets)
	return a
}

// ClassifyTrend compares the mean of the latest periods with the mean of the
// earliest ones. Series shorter than the window use every period on both sides.
func ClassifyTrend(nets []float64) model.Trend {
	if len(nets) == 0 {
		return model.TrendStable
	}
	w := trendWindow
	if w > len(nets) {
		w = len(nets)
	}
	older := stats.Mean(nets[:w])
	recent := stats.Mean(nets[len(nets)-w:])
	band := trendBand * math.Abs(older)

	switch {
	case recent > older+band:
		return model.TrendImproving
	case recent < older-band:
		return model.TrendDeclining
	}
	return model.TrendStable
}

// Project extrapolates monthsAhead months from the averages of a, compounding
// income by 10% and expenses by 5% per month in the direction of the trend.
func Project(a model.CashFlowAnalysis, monthsAhead int) ([]model.ProjectionPoint, error) {
	if monthsAhead <= 0 {
		return nil, ledger.Errorf(ledger.ErrValidation, "project cash flow", "months ahead must be positive, got %d", monthsAhead)
	}

	f := a.Trend.Factor()
	balance := a.ClosingBalance
	out := make([]model.ProjectionPoint, monthsAhead)
	for i := 1; i <= monthsAhead; i++ {
		inc := stats.FloorZero(a.AvgIncome * (1 + f*float64(i)*incomeGrowthStep))
		exp := stats.FloorZero(a.AvgExpense * (1 + f*float64(i)*expenseGrowthStep))
		net := inc - exp
		balance += net
		out[i-1] = model.ProjectionPoint{
			Month:   i,
			Income:  inc,
			Expense: exp,
			Net:     net,
			Balance: balance,
		}
	}
	return out, nil
}
