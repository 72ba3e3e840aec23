package budget

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
)

// Alert thresholds as spent fractions, and how long an emitted alert
// suppresses further alerts for the same allocation.
const (
	ApproachingThreshold = 0.80
	ExceededThreshold    = 1.00
	AlertCooldown        = 24 * time.Hour
)

// Tracker refreshes spend snapshots and evaluates alerts. Operations on the
// same budget are serialized; different budgets run in parallel.
type Tracker struct {
	reader ledger.Reader
	store  ledger.BudgetStore
	locks  *keyedMutex
	logger *slog.Logger
	newID  func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithIDFunc overrides alert ID generation.
func WithIDFunc(f func() string) Option {
	return func(t *Tracker) { t.newID = f }
}

// NewTracker builds a tracker over a ledger reader and budget store.
func NewTracker(r ledger.Reader, s ledger.BudgetStore, opts ...Option) *Tracker {
	t := &Tracker{
		reader: r,
		store:  s,
		locks:  newKeyedMutex(),
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(t)
	}
	t.logger = t.logger.With(flog.FieldComponent, flog.ComponentBudget)
	return t
}

// RefreshSpent recomputes every allocation's spend from completed expenses in
// the budget window and overwrites the stored snapshot. Only active and
// completed budgets can be refreshed.
func (t *Tracker) RefreshSpent(ctx context.Context, budgetID string, now time.Time) (model.Budget, error) {
	unlock := t.locks.Lock(budgetID)
	defer unlock()
	return t.refresh(ctx, budgetID, now)
}

func (t *Tracker) refresh(ctx context.Context, budgetID string, now time.Time) (model.Budget, error) {
	const op = "refresh spent"
	b, err := t.store.LoadBudget(ctx, budgetID)
	if err != nil {
		return model.Budget{}, ledger.ReadFailure(op, err)
	}
	switch st := b.StatusAt(now); st {
	case model.BudgetActive, model.BudgetCompleted:
	default:
		return model.Budget{}, ledger.Errorf(ledger.ErrValidation, op, "budget %s is %s", b.ID, st)
	}

	for i := range b.Allocations {
		a := &b.Allocations[i]
		txs, err := t.reader.QueryTransactions(ctx, model.TxQuery{
			Kind:       model.Expense,
			Status:     model.Completed,
			CategoryID: a.CategoryID,
			From:       b.StartDate,
			To:         b.EndDate,
		})
		if err != nil {
			return model.Budget{}, ledger.ReadFailure(op, err)
		}

		spent := decimal.Zero
		for _, tx := range txs {
			spent = spent.Add(tx.Amount)
		}

		a.Spend.BudgetID, a.Spend.CategoryID = b.ID, a.CategoryID
		a.Spend.SpentAmount, a.Spend.RefreshedAt = spent, now
		if err := t.store.SaveSpent(ctx, a.Spend); err != nil {
			return model.Budget{}, ledger.ReadFailure(op, err)
		}
	}

	t.logger.Debug("refreshed budget", flog.FieldBudgetID, b.ID, "allocations", len(b.Allocations))
	return b, nil
}

// CheckAlerts emits threshold alerts for an active budget from its stored
// snapshots. An allocation that alerted within AlertCooldown of now is skipped,
// including when the alert was recorded by another process after the load.
func (t *Tracker) CheckAlerts(ctx context.Context, budgetID string, now time.Time) ([]model.Alert, error) {
	unlock := t.locks.Lock(budgetID)
	defer unlock()

	b, err := t.store.LoadBudget(ctx, budgetID)
	if err != nil {
		return nil, ledger.ReadFailure("check alerts", err)
	}
	return t.checkAlerts(ctx, b, now)
}

func (t *Tracker) checkAlerts(ctx context.Context, b model.Budget, now time.Time) ([]model.Alert, error) {
	const op = "check alerts"
	if st := b.StatusAt(now); st != model.BudgetActive {
		return nil, ledger.Errorf(ledger.ErrValidation, op, "budget %s is %s", b.ID, st)
	}

	var alerts []model.Alert
	for _, a := range b.Allocations {
		fired := DueAlerts(a, now)
		if len(fired) == 0 {
			continue
		}

		claimed, err := t.store.MarkAlerted(ctx, b.ID, a.CategoryID, now, AlertCooldown)
		if err != nil {
			return alerts, ledger.ReadFailure(op, err)
		}
		if !claimed {
			t.logger.Debug("alert already recorded", flog.FieldBudgetID, b.ID, flog.FieldCategory, a.CategoryID)
			continue
		}

		pct := SpentFraction(a.Spend.SpentAmount, a.AllocatedAmount) * 100
		for _, typ := range fired {
			alerts = append(alerts, model.Alert{
				ID:         t.newID(),
				Type:       typ,
				BudgetID:   b.ID,
				CategoryID: a.CategoryID,
				Percentage: pct,
				Spent:      a.Spend.SpentAmount,
				Allocated:  a.AllocatedAmount,
				EmittedAt:  now,
			})
		}
		t.logger.Info("budget alert", flog.FieldBudgetID, b.ID, flog.FieldCategory, a.CategoryID,
			"percentage", pct, "alerts", len(fired))
	}
	return alerts, nil
}

// DueAlerts returns the alert types an allocation should emit at now,
// honouring its flags and the cooldown since the last alert.
func DueAlerts(a model.Allocation, now time.Time) []model.AlertType {
	if last := a.Spend.LastAlertSentAt; last != nil && now.Sub(*last) < AlertCooldown {
		return nil
	}
	pct := SpentFraction(a.Spend.SpentAmount, a.AllocatedAmount)

	var out []model.AlertType
	if a.AlertAt80 && pct >= ApproachingThreshold {
		out = append(out, model.AlertApproachingLimit)
	}
	if a.AlertAt100 && pct >= ExceededThreshold {
		out = append(out, model.AlertExceededLimit)
	}
	return out
}

// Report loads b and evaluates every allocation at now without refreshing.
func (t *Tracker) Report(ctx context.Context, budgetID string, now time.Time) (model.BudgetReport, error) {
	b, err := t.store.LoadBudget(ctx, budgetID)
	if err != nil {
		return model.BudgetReport{}, ledger.ReadFailure("budget report", err)
	}
	return Report(b, now), nil
}
