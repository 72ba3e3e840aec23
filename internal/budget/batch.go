package budget

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/fincast/internal/ledger"
	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
)

// BudgetFailure records one budget that could not be processed in a batch.
type BudgetFailure struct {
	BudgetID string
	Err      error
}

func (f BudgetFailure) Error() string {
	return fmt.Sprintf("budget %s: %v", f.BudgetID, f.Err)
}

func (f BudgetFailure) Unwrap() error { return f.Err }

// BatchResult summarises a RefreshAll run.
type BatchResult struct {
	Refreshed []string
	Alerts    []model.Alert
	Failures  []BudgetFailure
}

// RefreshAll refreshes every active budget and checks its alerts. Budgets are
// processed independently on up to limit goroutines (GOMAXPROCS when limit <= 0);
// one budget's failure never stops the others. The returned error joins every
// per-budget failure.
func (t *Tracker) RefreshAll(ctx context.Context, now time.Time, limit int) (BatchResult, error) {
	budgets, err := t.store.ListBudgets(ctx, model.BudgetActive)
	if err != nil {
		return BatchResult{}, ledger.ReadFailure("refresh all", err)
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var (
		mu  sync.Mutex
		res BatchResult
		g   errgroup.Group
	)
	g.SetLimit(limit)

	for _, b := range budgets {
		id := b.ID
		g.Go(func() error {
			alerts, err := t.refreshAndCheck(ctx, id, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.logger.Warn("budget refresh failed", flog.FieldBudgetID, id, flog.FieldError, err)
				res.Failures = append(res.Failures, BudgetFailure{BudgetID: id, Err: err})
				return nil
			}
			res.Refreshed = append(res.Refreshed, id)
			res.Alerts = append(res.Alerts, alerts...)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(res.Refreshed)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].BudgetID < res.Failures[j].BudgetID })
	sort.SliceStable(res.Alerts, func(i, j int) bool { return res.Alerts[i].BudgetID < res.Alerts[j].BudgetID })

	errs := make([]error, len(res.Failures))
	for i, f := range res.Failures {
		errs[i] = f
	}
	return res, errors.Join(errs...)
}

// refreshAndCheck holds the budget lock across both steps so alerts see the
// snapshot just written.
func (t *Tracker) refreshAndCheck(ctx context.Context, budgetID string, now time.Time) ([]model.Alert, error) {
	unlock := t.locks.Lock(budgetID)
	defer unlock()

	b, err := t.refresh(ctx, budgetID, now)
	if err != nil {
		return nil, err
	}
	if b.StatusAt(now) != model.BudgetActive {
		return nil, nil
	}
	return t.checkAlerts(ctx, b, now)
}
