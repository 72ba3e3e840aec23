package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/store"
)

// interleavedStore runs afterLoad once, right after the next LoadBudget
// returns, to simulate another process writing between load and save.
type interleavedStore struct {
	*store.SQLite
	afterLoad func()
}

func (s *interleavedStore) LoadBudget(ctx context.Context, id string) (model.Budget, error) {
	b, err := s.SQLite.LoadBudget(ctx, id)
	if hook := s.afterLoad; hook != nil {
		s.afterLoad = nil
		hook()
	}
	return b, err
}

func openShared(t *testing.T) (*store.SQLite, *store.SQLite) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	a, err := store.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	batch := store.ImportBatch{
		FilePath:     "/exports/may.jsonl",
		Transactions: []model.Transaction{expense("ops", 850, "2024-05-05")},
		Budgets: []model.Budget{activeBudget("b1", model.Allocation{
			CategoryID: "ops", AllocatedAmount: dec(1000), AlertAt80: true,
		})},
	}
	require.NoError(t, a.SaveImport(batch, store.FileInfo{MtimeNs: 1}))

	b, err := store.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return a, b
}

func TestRefreshInOtherProcessKeepsAlertTime(t *testing.T) {
	dbA, dbB := openShared(t)
	ctx := context.Background()
	now := day("2024-05-10").Add(9 * time.Hour)

	trA := NewTracker(dbA, dbA)
	_, err := trA.RefreshSpent(ctx, "b1", now)
	require.NoError(t, err)

	var first []model.Alert
	hooked := &interleavedStore{SQLite: dbB, afterLoad: func() {
		first, err = trA.CheckAlerts(ctx, "b1", now)
		require.NoError(t, err)
	}}
	trB := NewTracker(hooked, hooked)
	_, errB := trB.RefreshSpent(ctx, "b1", now)
	require.NoError(t, errB)
	require.Len(t, first, 1)

	again, err := trA.CheckAlerts(ctx, "b1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again, "alert re-emitted within the cooldown")

	b, err := dbA.LoadBudget(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, b.Allocations[0].Spend.LastAlertSentAt)
	assert.True(t, b.Allocations[0].Spend.LastAlertSentAt.Equal(now))
	assert.True(t, b.Allocations[0].Spend.SpentAmount.Equal(dec(850)))
}

func TestStaleCheckInOtherProcessDoesNotDuplicate(t *testing.T) {
	dbA, dbB := openShared(t)
	ctx := context.Background()
	now := day("2024-05-10").Add(9 * time.Hour)

	trA := NewTracker(dbA, dbA)
	_, err := trA.RefreshSpent(ctx, "b1", now)
	require.NoError(t, err)

	var first []model.Alert
	hooked := &interleavedStore{SQLite: dbB, afterLoad: func() {
		first, err = trA.CheckAlerts(ctx, "b1", now)
		require.NoError(t, err)
	}}
	second, errB := NewTracker(hooked, hooked).CheckAlerts(ctx, "b1", now.Add(time.Minute))
	require.NoError(t, errB)

	assert.Len(t, first, 1)
	assert.Empty(t, second, "both processes emitted the same alert")
}
