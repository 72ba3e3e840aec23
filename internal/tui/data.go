package tui

import (
	"context"
	"errors"
	"time"

	"github.com/theirongolddev/fincast/internal/budget"
	"github.com/theirongolddev/fincast/internal/config"
	"github.com/theirongolddev/fincast/internal/engine"
	"github.com/theirongolddev/fincast/internal/forecast"
	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// projectionMonths is how far the Cash Flow tab projects.
const projectionMonths = 6

// dashboard is every engine result the tabs render. It is computed once per
// load or refresh, never inside View.
type dashboard struct {
	AsOf  time.Time
	Start time.Time
	End   time.Time

	Health     model.HealthScore
	Categories []model.CategoryTotal

	Method      forecast.Method
	Granularity model.Granularity
	History     []model.PeriodBucket
	Forecast    model.Forecast
	ForecastErr error // insufficient history is shown, not fatal

	CashFlow   model.CashFlowAnalysis
	Projection []model.ProjectionPoint

	Budgets []model.BudgetReport
	// DueAlerts counts allocations of active budgets that would alert on
	// the next refresh.
	DueAlerts int
}

// historyWindow is the last months completed calendar months before now.
func historyWindow(now time.Time, months int) (time.Time, time.Time) {
	return model.CompletedMonths(now, months)
}

// loadDashboard queries the engine for everything the dashboard shows.
// Read failures abort; an unusable forecast is recorded and rendering goes on.
func loadDashboard(ctx context.Context, eng *engine.Engine, cfg config.Config, method forecast.Method, now time.Time) (*dashboard, error) {
	start, end := historyWindow(now, cfg.General.DefaultMonths)

	g, err := model.ParseGranularity(cfg.Forecast.Granularity)
	if err != nil {
		g = model.GranularityMonth
	}

	d := &dashboard{AsOf: now, Start: start, End: end, Method: method, Granularity: g}

	d.Health, err = eng.ComputeHealthScore(ctx, now)
	if err != nil {
		return nil, err
	}

	d.Categories, err = eng.CategorySpend(ctx, start, end)
	if err != nil {
		return nil, err
	}

	d.Forecast, d.History, err = eng.Forecast(ctx, engine.ForecastRequest{
		Start:       start,
		End:         end,
		Granularity: g,
		Horizon:     cfg.Forecast.Horizon,
		Method:      method,
		Window:      cfg.Forecast.Window,
	})
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrExternalRead):
		return nil, err
	default:
		d.ForecastErr = err
	}

	d.CashFlow, d.Projection, err = eng.ProjectCashFlow(ctx, start, end, projectionMonths)
	if err != nil {
		return nil, err
	}

	budgets, err := eng.ListBudgets(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if b.Status == model.BudgetDraft || b.Status == model.BudgetCancelled {
			continue
		}
		rep, err := eng.BudgetReport(ctx, b.ID, now)
		if err != nil {
			return nil, err
		}
		d.Budgets = append(d.Budgets, rep)
		if b.Status == model.BudgetActive {
			for _, a := range b.Allocations {
				if len(budget.DueAlerts(a, now)) > 0 {
					d.DueAlerts++
				}
			}
		}
	}

	return d, nil
}
