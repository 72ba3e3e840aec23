package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/theirongolddev/fincast/internal/model"
)

// Memory is an in-process Store. It backs tests and the dry-run paths of the CLI.
type Memory struct {
	mu        sync.RWMutex
	txs       []model.Transaction
	budgets   map[string]model.Budget
	snapshots map[string]model.SpendSnapshot
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		budgets:   make(map[string]model.Budget),
		snapshots: make(map[string]model.SpendSnapshot),
	}
}

// AddTransactions appends transactions to the ledger.
func (m *Memory) AddTransactions(txs ...model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, txs...)
	sort.SliceStable(m.txs, func(i, j int) bool {
		return m.txs[i].OccurredOn.Before(m.txs[j].OccurredOn)
	})
}

// PutBudget inserts or replaces a budget and its allocations.
func (m *Memory) PutBudget(b model.Budget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ID] = b
}

func (m *Memory) QueryTransactions(ctx context.Context, q model.TxQuery) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Transaction
	for _, tx := range m.txs {
		if q.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *Memory) LoadBudget(ctx context.Context, id string) (model.Budget, error) {
	if err := ctx.Err(); err != nil {
		return model.Budget{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[id]
	if !ok {
		return model.Budget{}, Errorf(ErrNotFound, "load budget", "budget %q", id)
	}
	return m.withSnapshots(b), nil
}

func (m *Memory) ListBudgets(ctx context.Context, status model.BudgetStatus) ([]model.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Budget
	for _, b := range m.budgets {
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, m.withSnapshots(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveSpent(ctx context.Context, s model.SpendSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := snapshotKey(s.BudgetID, s.CategoryID)
	s.LastAlertSentAt = m.snapshots[key].LastAlertSentAt
	m.snapshots[key] = s
	return nil
}

func (m *Memory) MarkAlerted(ctx context.Context, budgetID, categoryID string, at time.Time, cooldown time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := snapshotKey(budgetID, categoryID)
	s, ok := m.snapshots[key]
	if !ok {
		s = model.SpendSnapshot{BudgetID: budgetID, CategoryID: categoryID, RefreshedAt: at}
	}
	if last := s.LastAlertSentAt; last != nil && at.Sub(*last) < cooldown {
		return false, nil
	}
	s.LastAlertSentAt = &at
	m.snapshots[key] = s
	return true, nil
}

// Snapshot returns the stored snapshot for an allocation.
func (m *Memory) Snapshot(budgetID, categoryID string) (model.SpendSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[snapshotKey(budgetID, categoryID)]
	return s, ok
}

// withSnapshots copies b with stored snapshots merged into its allocations.
// Caller holds at least the read lock.
func (m *Memory) withSnapshots(b model.Budget) model.Budget {
	allocs := make([]model.Allocation, len(b.Allocations))
	copy(allocs, b.Allocations)
	for i := range allocs {
		if s, ok := m.snapshots[snapshotKey(b.ID, allocs[i].CategoryID)]; ok {
			allocs[i].Spend = s
		}
	}
	b.Allocations = allocs
	return b
}

func snapshotKey(budgetID, categoryID string) string {
	return budgetID + "\x00" + categoryID
}
