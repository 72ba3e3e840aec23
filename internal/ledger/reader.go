// Package ledger defines the read contract the engine consumes and the error
// taxonomy shared by every engine component.
package ledger

import (
	"context"
	"time"

	"github.com/theirongolddev/fincast/internal/model"
)

// Reader is a read-only accessor over the transaction store. Results are
// ordered by OccurredOn.
type Reader interface {
	QueryTransactions(ctx context.Context, q model.TxQuery) ([]model.Transaction, error)
}

// BudgetStore loads budgets with their allocations and persists the computed
// spend snapshot. Implementations never touch allocation configuration.
//
// The two snapshot writes touch disjoint columns so a refresh and an alert
// check running in different processes cannot overwrite each other.
type BudgetStore interface {
	LoadBudget(ctx context.Context, id string) (model.Budget, error)
	ListBudgets(ctx context.Context, status model.BudgetStatus) ([]model.Budget, error)
	// SaveSpent upserts SpentAmount and RefreshedAt. LastAlertSentAt is ignored.
	SaveSpent(ctx context.Context, s model.SpendSnapshot) error
	// MarkAlerted sets the allocation's last alert time to at unless an alert
	// was recorded less than cooldown before at. It reports whether at was
	// recorded; false means another writer already alerted.
	MarkAlerted(ctx context.Context, budgetID, categoryID string, at time.Time, cooldown time.Duration) (bool, error)
}

// Store is the full collaborator surface used by the engine facade.
type Store interface {
	Reader
	BudgetStore
}
