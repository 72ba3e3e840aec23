// Package budget tracks allocated spend against the ledger: refreshing the
// spend snapshot, raising threshold alerts, and computing burn-rate metrics.
package budget

import (
	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// Normalize fills a missing end date from the period type and validates b.
func Normalize(b *model.Budget) error {
	if b.EndDate.IsZero() {
		end, err := model.DeriveEndDate(b.PeriodType, b.StartDate)
		if err != nil {
			return ledger.Errorf(ledger.ErrValidation, "normalize budget", "%v", err)
		}
		b.EndDate = end
	}
	if b.Status == "" {
		b.Status = model.BudgetDraft
	}
	return Validate(*b)
}

// Validate checks the configuration fields of b and its allocations.
func Validate(b model.Budget) error {
	const op = "validate budget"
	if b.ID == "" {
		return ledger.Errorf(ledger.ErrValidation, op, "budget id is required")
	}
	switch b.PeriodType {
	case model.PeriodMonthly, model.PeriodQuarterly, model.PeriodYearly:
	default:
		return ledger.Errorf(ledger.ErrValidation, op, "budget %s: unknown period type %q", b.ID, b.PeriodType)
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ledger.Errorf(ledger.ErrValidation, op, "budget %s: start and end dates are required", b.ID)
	}
	if model.Day(b.EndDate).Before(model.Day(b.StartDate)) {
		return ledger.Errorf(ledger.ErrInvalidRange, op, "budget %s ends before it starts", b.ID)
	}
	if b.TotalAmount.IsNegative() {
		return ledger.Errorf(ledger.ErrValidation, op, "budget %s: negative total amount %s", b.ID, b.TotalAmount)
	}

	seen := make(map[string]struct{}, len(b.Allocations))
	for _, a := range b.Allocations {
		if a.CategoryID == "" {
			return ledger.Errorf(ledger.ErrValidation, op, "budget %s: allocation without category", b.ID)
		}
		if _, dup := seen[a.CategoryID]; dup {
			return ledger.Errorf(ledger.ErrValidation, op, "budget %s: duplicate allocation for %s", b.ID, a.CategoryID)
		}
		seen[a.CategoryID] = struct{}{}
		if a.AllocatedAmount.IsNegative() {
			return ledger.Errorf(ledger.ErrValidation, op, "budget %s: negative allocation %s for %s",
				b.ID, a.AllocatedAmount, a.CategoryID)
		}
	}
	return nil
}

// Activate moves a draft budget to active.
func Activate(b *model.Budget) error {
	return transition(b, model.BudgetActive, model.BudgetDraft)
}

// Complete marks an active budget completed.
func Complete(b *model.Budget) error {
	return transition(b, model.BudgetCompleted, model.BudgetActive)
}

// Cancel stops a draft or active budget.
func Cancel(b *model.Budget) error {
	return transition(b, model.BudgetCancelled, model.BudgetDraft, model.BudgetActive)
}

func transition(b *model.Budget, to model.BudgetStatus, from ...model.BudgetStatus) error {
	for _, f := range from {
		if b.Status == f {
			b.Status = to
			return nil
		}
	}
	return ledger.Errorf(ledger.ErrValidation, "budget transition", "budget %s: cannot move from %s to %s", b.ID, b.Status, to)
}
