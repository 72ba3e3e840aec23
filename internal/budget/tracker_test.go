package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

func expense(cat string, amount int64, on string) model.Transaction {
	return model.Transaction{
		ID: fmt.Sprintf("%s-%s-%d", cat, on, amount), Kind: model.Expense, Amount: dec(amount),
		OccurredOn: day(on), Status: model.Completed, CategoryID: cat,
	}
}

func activeBudget(id string, allocs ...model.Allocation) model.Budget {
	for i := range allocs {
		allocs[i].BudgetID = id
	}
	return model.Budget{
		ID: id, Name: id, PeriodType: model.PeriodMonthly, Status: model.BudgetActive,
		StartDate: day("2024-05-01"), EndDate: day("2024-05-31"), TotalAmount: dec(1000),
		Allocations: allocs,
	}
}

func newTestTracker(mem *ledger.Memory) *Tracker {
	n := 0
	var mu sync.Mutex
	return NewTracker(mem, mem, WithIDFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("alert-%d", n)
	}))
}

func TestRefreshSpentIsIdempotent(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1", model.Allocation{CategoryID: "food", AllocatedAmount: dec(1000)}))
	mem.AddTransactions(
		expense("food", 300, "2024-05-02"),
		expense("food", 200, "2024-05-31"),
		expense("food", 999, "2024-06-01"),
		expense("rent", 500, "2024-05-03"),
	)
	pending := expense("food", 77, "2024-05-04")
	pending.Status = model.Pending
	mem.AddTransactions(pending)

	tr := newTestTracker(mem)
	now := day("2024-05-15")
	for i := 0; i < 2; i++ {
		b, err := tr.RefreshSpent(context.Background(), "b1", now)
		require.NoError(t, err)
		assert.True(t, b.Allocations[0].Spend.SpentAmount.Equal(dec(500)), "spent = %s", b.Allocations[0].Spend.SpentAmount)
	}

	snap, ok := mem.Snapshot("b1", "food")
	require.True(t, ok)
	assert.True(t, snap.SpentAmount.Equal(dec(500)))
	assert.Equal(t, now, snap.RefreshedAt)
}

func TestRefreshSpentRejectsDraft(t *testing.T) {
	mem := ledger.NewMemory()
	b := activeBudget("draft", model.Allocation{CategoryID: "food", AllocatedAmount: dec(10)})
	b.Status = model.BudgetDraft
	mem.PutBudget(b)

	_, err := newTestTracker(mem).RefreshSpent(context.Background(), "draft", day("2024-05-02"))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = newTestTracker(mem).RefreshSpent(context.Background(), "missing", day("2024-05-02"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCheckAlertsApproachingLimit(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1", model.Allocation{
		CategoryID: "ops", AllocatedAmount: dec(1000), AlertAt80: true, AlertAt100: true,
	}))
	mem.AddTransactions(expense("ops", 850, "2024-05-05"))

	tr := newTestTracker(mem)
	now := day("2024-05-10").Add(9 * time.Hour)
	_, err := tr.RefreshSpent(context.Background(), "b1", now)
	require.NoError(t, err)

	alerts, err := tr.CheckAlerts(context.Background(), "b1", now)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertApproachingLimit, alerts[0].Type)
	assert.InDelta(t, 85.0, alerts[0].Percentage, 1e-9)
	assert.Equal(t, "alert-1", alerts[0].ID)

	snap, _ := mem.Snapshot("b1", "ops")
	require.NotNil(t, snap.LastAlertSentAt)
	assert.Equal(t, now, *snap.LastAlertSentAt)
}

func TestCheckAlertsSuppressionWindow(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1", model.Allocation{
		CategoryID: "ops", AllocatedAmount: dec(100), AlertAt80: true, AlertAt100: true,
	}))
	mem.AddTransactions(expense("ops", 120, "2024-05-02"))

	tr := newTestTracker(mem)
	start := day("2024-05-10")
	_, err := tr.RefreshSpent(context.Background(), "b1", start)
	require.NoError(t, err)

	first, err := tr.CheckAlerts(context.Background(), "b1", start)
	require.NoError(t, err)
	require.Len(t, first, 2, "both thresholds crossed in one refresh fire once each")
	assert.Equal(t, model.AlertApproachingLimit, first[0].Type)
	assert.Equal(t, model.AlertExceededLimit, first[1].Type)

	for h := 1; h < 24; h++ {
		again, err := tr.CheckAlerts(context.Background(), "b1", start.Add(time.Duration(h)*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, again, "re-emitted %d hours later", h)
	}

	later, err := tr.CheckAlerts(context.Background(), "b1", start.Add(AlertCooldown))
	require.NoError(t, err)
	assert.Len(t, later, 2)
}

func TestCheckAlertsRespectsFlagsAndZeroAllocation(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1",
		model.Allocation{CategoryID: "quiet", AllocatedAmount: dec(100)},
		model.Allocation{CategoryID: "zero", AllocatedAmount: dec(0), AlertAt80: true, AlertAt100: true},
	))
	mem.AddTransactions(expense("quiet", 150, "2024-05-02"), expense("zero", 10, "2024-05-02"))

	tr := newTestTracker(mem)
	now := day("2024-05-03")
	_, err := tr.RefreshSpent(context.Background(), "b1", now)
	require.NoError(t, err)
	alerts, err := tr.CheckAlerts(context.Background(), "b1", now)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCheckAlertsRequiresActive(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1", model.Allocation{CategoryID: "x", AllocatedAmount: dec(1), AlertAt80: true}))

	_, err := newTestTracker(mem).CheckAlerts(context.Background(), "b1", day("2024-07-01"))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

type flakyReader struct {
	*ledger.Memory
	failCategory string
}

func (f flakyReader) QueryTransactions(ctx context.Context, q model.TxQuery) ([]model.Transaction, error) {
	if q.CategoryID == f.failCategory {
		return nil, errors.New("ledger unavailable")
	}
	return f.Memory.QueryTransactions(ctx, q)
}

func TestRefreshAllCollectsFailures(t *testing.T) {
	mem := ledger.NewMemory()
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("b%d", i)
		mem.PutBudget(activeBudget(id, model.Allocation{CategoryID: id, AllocatedAmount: dec(100), AlertAt100: true}))
		mem.AddTransactions(expense(id, 100, "2024-05-02"))
	}
	mem.PutBudget(activeBudget("broken", model.Allocation{CategoryID: "broken", AllocatedAmount: dec(100)}))
	draft := activeBudget("draft", model.Allocation{CategoryID: "d", AllocatedAmount: dec(1)})
	draft.Status = model.BudgetDraft
	mem.PutBudget(draft)

	tr := NewTracker(flakyReader{Memory: mem, failCategory: "broken"}, mem)
	res, err := tr.RefreshAll(context.Background(), day("2024-05-20"), 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrExternalRead)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "broken", res.Failures[0].BudgetID)
	assert.Len(t, res.Refreshed, 8)
	assert.Len(t, res.Alerts, 8)
	for _, a := range res.Alerts {
		assert.Equal(t, model.AlertExceededLimit, a.Type)
	}
}

func TestConcurrentRefreshSameBudget(t *testing.T) {
	mem := ledger.NewMemory()
	mem.PutBudget(activeBudget("b1", model.Allocation{CategoryID: "food", AllocatedAmount: dec(1000), AlertAt80: true}))
	mem.AddTransactions(expense("food", 900, "2024-05-02"))

	tr := newTestTracker(mem)
	now := day("2024-05-10")
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.RefreshSpent(context.Background(), "b1", now)
			assert.NoError(t, err)
			alerts, err := tr.CheckAlerts(context.Background(), "b1", now)
			assert.NoError(t, err)
			mu.Lock()
			total += len(alerts)
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, total, "serialized checks must emit a single alert")
}
