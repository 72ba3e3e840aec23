package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

var _ ledger.Store = (*SQLite)(nil)
var _ ledger.Store = (*Postgres)(nil)

func day(s string) time.Time {
	t, _ := model.ParseDate(s)
	return t
}

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBatch() ImportBatch {
	return ImportBatch{
		FilePath: "/exports/2024.jsonl",
		Transactions: []model.Transaction{
			{ID: "t2", Kind: model.Expense, Amount: decimal.RequireFromString("12.50"), Currency: "USD", OccurredOn: day("2024-03-02"), Status: model.Completed, CategoryID: "food"},
			{ID: "t1", Kind: model.Income, Amount: decimal.RequireFromString("1000"), Currency: "USD", OccurredOn: day("2024-03-01"), Status: model.Completed},
			{ID: "t3", Kind: model.Expense, Amount: decimal.RequireFromString("99.99"), Currency: "USD", OccurredOn: day("2024-04-01"), Status: model.Pending, CategoryID: "food"},
		},
		Budgets: []model.Budget{{
			ID: "mar", Name: "March", PeriodType: model.PeriodMonthly, Status: model.BudgetActive,
			StartDate: day("2024-03-01"), EndDate: day("2024-03-31"), TotalAmount: decimal.NewFromInt(500),
			Allocations: []model.Allocation{
				{CategoryID: "food", AllocatedAmount: decimal.NewFromInt(300), AlertAt80: true},
				{CategoryID: "fun", AllocatedAmount: decimal.NewFromInt(200), AlertAt100: true},
			},
		}},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SaveImport(sampleBatch(), FileInfo{MtimeNs: 1, SizeBytes: 2}))

	ctx := context.Background()
	txs, err := s.QueryTransactions(ctx, model.TxQuery{})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "t1", txs[0].ID, "ordered by date")
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("12.5")))

	filtered, err := s.QueryTransactions(ctx, model.TxQuery{
		Kind: model.Expense, Status: model.Completed, CategoryID: "food",
		From: day("2024-03-02"), To: day("2024-03-02"),
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "t2", filtered[0].ID)

	b, err := s.LoadBudget(ctx, "mar")
	require.NoError(t, err)
	assert.Equal(t, model.BudgetActive, b.Status)
	require.Len(t, b.Allocations, 2)
	assert.True(t, b.Allocations[0].Spend.SpentAmount.IsZero())
	assert.Nil(t, b.Allocations[0].Spend.LastAlertSentAt)

	tracked, err := s.GetTrackedFiles()
	require.NoError(t, err)
	assert.Equal(t, FileInfo{MtimeNs: 1, SizeBytes: 2}, tracked["/exports/2024.jsonl"])

	nTx, nB, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, 3, nTx)
	assert.Equal(t, 1, nB)
}

func TestSQLiteSnapshots(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SaveImport(sampleBatch(), FileInfo{}))
	ctx := context.Background()

	sent := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.SaveSpent(ctx, model.SpendSnapshot{
		BudgetID: "mar", CategoryID: "food", SpentAmount: decimal.RequireFromString("250.25"), RefreshedAt: sent,
	}))
	claimed, err := s.MarkAlerted(ctx, "mar", "food", sent, 24*time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	// A later spend refresh leaves the alert time in place.
	require.NoError(t, s.SaveSpent(ctx, model.SpendSnapshot{
		BudgetID: "mar", CategoryID: "food", SpentAmount: decimal.RequireFromString("250.25"),
		RefreshedAt: sent.Add(time.Hour),
	}))

	b, err := s.LoadBudget(ctx, "mar")
	require.NoError(t, err)
	food := b.Allocations[0]
	require.Equal(t, "food", food.CategoryID)
	assert.True(t, food.Spend.SpentAmount.Equal(decimal.RequireFromString("250.25")))
	require.NotNil(t, food.Spend.LastAlertSentAt)
	assert.True(t, food.Spend.LastAlertSentAt.Equal(sent))
	assert.True(t, food.Spend.RefreshedAt.Equal(sent.Add(time.Hour)))

	// Re-importing the same file keeps snapshots and does not duplicate rows.
	require.NoError(t, s.SaveImport(sampleBatch(), FileInfo{MtimeNs: 5}))
	b, err = s.LoadBudget(ctx, "mar")
	require.NoError(t, err)
	assert.True(t, b.Allocations[0].Spend.SpentAmount.Equal(decimal.RequireFromString("250.25")))
	nTx, _, _ := s.Counts()
	assert.Equal(t, 3, nTx)
}

func TestSQLiteMarkAlertedCooldown(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.SaveImport(sampleBatch(), FileInfo{}))
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	// No spend row yet: the claim inserts one.
	ok, err := s.MarkAlerted(ctx, "mar", "fun", at, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, next := range []time.Duration{0, time.Hour, 23*time.Hour + 59*time.Minute} {
		ok, err = s.MarkAlerted(ctx, "mar", "fun", at.Add(next), 24*time.Hour)
		require.NoError(t, err)
		assert.False(t, ok, "claimed again %s later", next)
	}

	ok, err = s.MarkAlerted(ctx, "mar", "fun", at.Add(24*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := s.LoadBudget(ctx, "mar")
	require.NoError(t, err)
	fun := b.Allocations[1]
	require.Equal(t, "fun", fun.CategoryID)
	require.NotNil(t, fun.Spend.LastAlertSentAt)
	assert.True(t, fun.Spend.LastAlertSentAt.Equal(at.Add(24*time.Hour)))
	assert.True(t, fun.Spend.SpentAmount.IsZero())
}

func TestSQLiteBudgetNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.LoadBudget(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	active, err := s.ListBudgets(context.Background(), model.BudgetActive)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTxWhere(t *testing.T) {
	q := model.TxQuery{Status: model.Completed, CategoryID: "food", From: day("2024-01-01")}
	where, args := txWhere(q, dollar, pgDate)
	assert.Equal(t, " WHERE status = $1 AND category_id = $2 AND occurred_on >= $3", where)
	assert.Equal(t, []any{"completed", "food", day("2024-01-01")}, args)

	where, args = txWhere(model.TxQuery{}, questionMark, sqliteDate)
	assert.Empty(t, where)
	assert.Nil(t, args)
}
