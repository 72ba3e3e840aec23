// Package engine exposes the forecasting and budget-health operations over a
// ledger store.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/budget"
	"github.com/theirongolddev/fincast/internal/cashflow"
	"github.com/theirongolddev/fincast/internal/forecast"
	"github.com/theirongolddev/fincast/internal/health"
	"github.com/theirongolddev/fincast/internal/ledger"
	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/pipeline"
)

// Engine is safe for concurrent use. Everything except the budget operations
// is a pure query over the ledger.
type Engine struct {
	store   ledger.Store
	tracker *budget.Tracker
	logger  *slog.Logger
	limit   int
}

// New builds an engine over store. A nil logger uses slog.Default.
func New(store ledger.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		tracker: budget.NewTracker(store, store, budget.WithLogger(logger)),
		logger:  logger.With(flog.FieldComponent, flog.ComponentEngine),
	}
}

// SetBatchLimit caps concurrent budgets in RefreshAllBudgets.
func (e *Engine) SetBatchLimit(n int) { e.limit = n }

// Aggregate buckets completed transactions in [start, end].
func (e *Engine) Aggregate(ctx context.Context, start, end time.Time, g model.Granularity) ([]model.PeriodBucket, error) {
	return pipeline.Aggregate(ctx, e.store, start, end, g)
}

// ForecastRequest describes the history window and the projection wanted.
type ForecastRequest struct {
	Start       time.Time
	End         time.Time
	Granularity model.Granularity
	Horizon     int
	Method      forecast.Method
	Window      int
}

// Forecast aggregates the history window and projects Horizon periods of income.
func (e *Engine) Forecast(ctx context.Context, req ForecastRequest) (model.Forecast, []model.PeriodBucket, error) {
	g := req.Granularity
	if g == "" {
		g = model.GranularityMonth
	}
	hist, err := pipeline.Aggregate(ctx, e.store, req.Start, req.End, g)
	if err != nil {
		return model.Forecast{}, nil, err
	}
	fc, err := forecast.Forecast(hist, req.Horizon, req.Method, forecast.Options{
		Window:      req.Window,
		Granularity: g,
	})
	if err != nil {
		return model.Forecast{}, hist, err
	}
	return fc, hist, nil
}

// AnalyzeCashFlow builds a monthly cash-flow statement for [start, end],
// opening from the balance of all completed activity before start.
func (e *Engine) AnalyzeCashFlow(ctx context.Context, start, end time.Time) (model.CashFlowAnalysis, error) {
	buckets, err := pipeline.Aggregate(ctx, e.store, start, end, model.GranularityMonth)
	if err != nil {
		return model.CashFlowAnalysis{}, err
	}
	opening, err := e.OpeningBalance(ctx, start)
	if err != nil {
		return model.CashFlowAnalysis{}, err
	}
	return cashflow.Analyze(buckets, opening), nil
}

// ProjectCashFlow analyzes [start, end] and extends it monthsAhead months.
func (e *Engine) ProjectCashFlow(ctx context.Context, start, end time.Time, monthsAhead int) (model.CashFlowAnalysis, []model.ProjectionPoint, error) {
	a, err := e.AnalyzeCashFlow(ctx, start, end)
	if err != nil {
		return model.CashFlowAnalysis{}, nil, err
	}
	pts, err := cashflow.Project(a, monthsAhead)
	if err != nil {
		return a, nil, err
	}
	return a, pts, nil
}

// OpeningBalance is completed income minus expense strictly before start.
func (e *Engine) OpeningBalance(ctx context.Context, start time.Time) (float64, error) {
	txs, err := e.store.QueryTransactions(ctx, model.TxQuery{
		Status: model.Completed,
		To:     model.Day(start).AddDate(0, 0, -1),
	})
	if err != nil {
		return 0, ledger.ReadFailure("opening balance", err)
	}
	bal := decimal.Zero
	for _, tx := range txs {
		switch tx.Kind {
		case model.Income:
			bal = bal.Add(tx.Amount)
		case model.Expense:
			bal = bal.Sub(tx.Amount)
		}
	}
	return bal.InexactFloat64(), nil
}

// RefreshBudgetSpend recomputes the spend snapshot of every allocation of a budget.
func (e *Engine) RefreshBudgetSpend(ctx context.Context, budgetID string, now time.Time) (model.Budget, error) {
	return e.tracker.RefreshSpent(ctx, budgetID, now)
}

// CheckBudgetAlerts emits threshold alerts for an active budget.
func (e *Engine) CheckBudgetAlerts(ctx context.Context, budgetID string, now time.Time) ([]model.Alert, error) {
	return e.tracker.CheckAlerts(ctx, budgetID, now)
}

// RefreshAllBudgets refreshes and checks every active budget independently.
func (e *Engine) RefreshAllBudgets(ctx context.Context, now time.Time) (budget.BatchResult, error) {
	res, err := e.tracker.RefreshAll(ctx, now, e.limit)
	e.logger.Info("refreshed budgets",
		"refreshed", len(res.Refreshed), "alerts", len(res.Alerts), "failures", len(res.Failures))
	return res, err
}

// BudgetReport evaluates a budget's stored snapshots at now.
func (e *Engine) BudgetReport(ctx context.Context, budgetID string, now time.Time) (model.BudgetReport, error) {
	return e.tracker.Report(ctx, budgetID, now)
}

// ListBudgets returns budgets with the given status, or all when status is empty.
func (e *Engine) ListBudgets(ctx context.Context, status model.BudgetStatus) ([]model.Budget, error) {
	bs, err := e.store.ListBudgets(ctx, status)
	if err != nil {
		return nil, ledger.ReadFailure("list budgets", err)
	}
	return bs, nil
}

// CategorySpend sums completed expenses per category in [start, end].
func (e *Engine) CategorySpend(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error) {
	return pipeline.AggregateCategories(ctx, e.store, start, end)
}

// ComputeHealthScore grades the ledger as of asOf.
func (e *Engine) ComputeHealthScore(ctx context.Context, asOf time.Time) (model.HealthScore, error) {
	w := health.WindowsAt(asOf)
	txs, err := e.store.QueryTransactions(ctx, model.TxQuery{
		Status: model.Completed,
		From:   w.Prior6.From,
		To:     w.Trailing6.To,
	})
	if err != nil {
		return model.HealthScore{}, ledger.ReadFailure("health score", err)
	}

	for _, tx := range txs {
		addToWindow(&w.TrailingMonth, tx)
		addToWindow(&w.Trailing6, tx)
		addToWindow(&w.Prior6, tx)
	}
	return health.Score(asOf, w), nil
}

func addToWindow(w *model.WindowTotals, tx model.Transaction) {
	d := model.Day(tx.OccurredOn)
	if d.Before(w.From) || d.After(w.To) {
		return
	}
	amt := tx.Amount.InexactFloat64()
	switch tx.Kind {
	case model.Income:
		w.Income += amt
	case model.Expense:
		w.Expense += amt
	}
}
