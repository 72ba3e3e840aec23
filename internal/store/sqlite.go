package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite is the local ledger store. The import pipeline writes it; the engine
// reads it and writes spend snapshots.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath and applies migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, errors.Wrap(err, "creating ledger dir")
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "opening ledger db")
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func sqliteDate(q model.TxQuery, from bool) any {
	if from {
		return model.Day(q.From).Format(dateLayout)
	}
	return model.Day(q.To).Format(dateLayout)
}

// QueryTransactions returns matching transactions ordered by date.
func (s *SQLite) QueryTransactions(ctx context.Context, q model.TxQuery) ([]model.Transaction, error) {
	where, args := txWhere(q, questionMark, sqliteDate)
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, amount, currency, occurred_on, status, category_id
		FROM transactions`+where+` ORDER BY occurred_on, id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Transaction
	for rows.Next() {
		var (
			tx           model.Transaction
			kind, status string
			amount, on   string
		)
		if err := rows.Scan(&tx.ID, &kind, &amount, &tx.Currency, &on, &status, &tx.CategoryID); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		tx.Kind, tx.Status = model.TxKind(kind), model.TxStatus(status)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Wrapf(err, "transaction %s: amount", tx.ID)
		}
		if tx.OccurredOn, err = time.Parse(dateLayout, on); err != nil {
			return nil, errors.Wrapf(err, "transaction %s: date", tx.ID)
		}
		out = append(out, tx)
	}
	return out, errors.Wrap(rows.Err(), "iterate transactions")
}

// LoadBudget reads a budget, its allocations, and their snapshots.
func (s *SQLite) LoadBudget(ctx context.Context, id string) (model.Budget, error) {
	bs, err := s.loadBudgets(ctx, `WHERE id = ?`, id)
	if err != nil {
		return model.Budget{}, err
	}
	if len(bs) == 0 {
		return model.Budget{}, ledger.Errorf(ledger.ErrNotFound, "load budget", "budget %q", id)
	}
	return bs[0], nil
}

// ListBudgets returns budgets with status, or every budget when status is empty.
func (s *SQLite) ListBudgets(ctx context.Context, status model.BudgetStatus) ([]model.Budget, error) {
	if status == "" {
		return s.loadBudgets(ctx, "")
	}
	return s.loadBudgets(ctx, `WHERE status = ?`, string(status))
}

func (s *SQLite) loadBudgets(ctx context.Context, where string, args ...any) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, period_type, start_date, end_date, total_amount, status
		FROM budgets `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query budgets")
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	idx := make(map[string]int)
	for rows.Next() {
		var (
			b                       model.Budget
			pt, st, start, end, tot string
		)
		if err := rows.Scan(&b.ID, &b.Name, &pt, &start, &end, &tot, &st); err != nil {
			return nil, errors.Wrap(err, "scan budget")
		}
		b.PeriodType, b.Status = model.PeriodType(pt), model.BudgetStatus(st)
		if b.StartDate, err = time.Parse(dateLayout, start); err != nil {
			return nil, errors.Wrapf(err, "budget %s: start date", b.ID)
		}
		if b.EndDate, err = time.Parse(dateLayout, end); err != nil {
			return nil, errors.Wrapf(err, "budget %s: end date", b.ID)
		}
		if b.TotalAmount, err = decimal.NewFromString(tot); err != nil {
			return nil, errors.Wrapf(err, "budget %s: total", b.ID)
		}
		idx[b.ID] = len(budgets)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate budgets")
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	// Batch-load allocations with their snapshots.
	allocRows, err := s.db.QueryContext(ctx, `SELECT
		a.budget_id, a.category_id, a.allocated_amount, a.alert_at_80, a.alert_at_100,
		s.spent_amount, s.last_alert_sent_at, s.refreshed_at
		FROM budget_allocations a
		LEFT JOIN allocation_spend s ON s.budget_id = a.budget_id AND s.category_id = a.category_id
		ORDER BY a.budget_id, a.category_id`)
	if err != nil {
		return nil, errors.Wrap(err, "query allocations")
	}
	defer func() { _ = allocRows.Close() }()

	for allocRows.Next() {
		var (
			a                  model.Allocation
			allocated          string
			at80, at100        int
			spent, last, fresh sql.NullString
		)
		if err := allocRows.Scan(&a.BudgetID, &a.CategoryID, &allocated, &at80, &at100, &spent, &last, &fresh); err != nil {
			return nil, errors.Wrap(err, "scan allocation")
		}
		i, ok := idx[a.BudgetID]
		if !ok {
			continue
		}
		if a.AllocatedAmount, err = decimal.NewFromString(allocated); err != nil {
			return nil, errors.Wrapf(err, "allocation %s/%s: amount", a.BudgetID, a.CategoryID)
		}
		a.AlertAt80, a.AlertAt100 = at80 != 0, at100 != 0
		a.Spend = model.SpendSnapshot{BudgetID: a.BudgetID, CategoryID: a.CategoryID, SpentAmount: decimal.Zero}
		if spent.Valid {
			if a.Spend.SpentAmount, err = decimal.NewFromString(spent.String); err != nil {
				return nil, errors.Wrapf(err, "allocation %s/%s: spent", a.BudgetID, a.CategoryID)
			}
		}
		if last.Valid && last.String != "" {
			t, err := time.Parse(time.RFC3339Nano, last.String)
			if err != nil {
				return nil, errors.Wrapf(err, "allocation %s/%s: last alert", a.BudgetID, a.CategoryID)
			}
			a.Spend.LastAlertSentAt = &t
		}
		if fresh.Valid && fresh.String != "" {
			a.Spend.RefreshedAt, _ = time.Parse(time.RFC3339Nano, fresh.String)
		}
		budgets[i].Allocations = append(budgets[i].Allocations, a)
	}
	return budgets, errors.Wrap(allocRows.Err(), "iterate allocations")
}

// SaveSpent upserts the computed spend for one allocation, leaving its last
// alert time alone.
func (s *SQLite) SaveSpent(ctx context.Context, snap model.SpendSnapshot) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO allocation_spend
		(budget_id, category_id, spent_amount, refreshed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (budget_id, category_id) DO UPDATE SET
			spent_amount = excluded.spent_amount,
			refreshed_at = excluded.refreshed_at`,
		snap.BudgetID, snap.CategoryID, snap.SpentAmount.String(), formatStamp(snap.RefreshedAt),
	)
	return errors.Wrapf(err, "save spent %s/%s", snap.BudgetID, snap.CategoryID)
}

// MarkAlerted records an alert at the given time in a single conditional
// upsert, so concurrent writers on other connections cannot both claim it.
func (s *SQLite) MarkAlerted(ctx context.Context, budgetID, categoryID string, at time.Time, cooldown time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO allocation_spend
		(budget_id, category_id, last_alert_sent_at, refreshed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (budget_id, category_id) DO UPDATE SET
			last_alert_sent_at = excluded.last_alert_sent_at
		WHERE allocation_spend.last_alert_sent_at IS NULL
			OR allocation_spend.last_alert_sent_at <= ?`,
		budgetID, categoryID, formatStamp(at), formatStamp(at), formatStamp(at.Add(-cooldown)),
	)
	if err != nil {
		return false, errors.Wrapf(err, "mark alerted %s/%s", budgetID, categoryID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "mark alerted rows")
	}
	return n > 0, nil
}

// stampLayout is fixed width so stored timestamps compare correctly as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// FileInfo holds the tracked mtime and size for an imported file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// GetTrackedFiles returns file_path -> FileInfo for every imported file.
func (s *SQLite) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := s.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, errors.Wrap(err, "query file tracker")
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, errors.Wrap(err, "scan file tracker")
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// ImportBatch is everything parsed from one export file.
type ImportBatch struct {
	FilePath     string
	Transactions []model.Transaction
	Budgets      []model.Budget
	// StatedStatus marks budgets whose status comes from the file. Existing
	// budgets not in it keep their stored status.
	StatedStatus map[string]bool
}

// SaveImport replaces the rows previously imported from batch.FilePath,
// upserts its budgets and allocations, and records the file as tracked.
// Spend snapshots of surviving allocations are kept, as is the status of a
// known budget unless the file states one.
func (s *SQLite) SaveImport(batch ImportBatch, fi FileInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin import")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM transactions WHERE source_file = ?", batch.FilePath); err != nil {
		return errors.Wrap(err, "clear previous import")
	}
	for _, t := range batch.Transactions {
		_, err := tx.Exec(`INSERT OR REPLACE INTO transactions
			(id, kind, amount, currency, occurred_on, status, category_id, source_file)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Kind), t.Amount.String(), t.Currency,
			model.Day(t.OccurredOn).Format(dateLayout), string(t.Status), t.CategoryID, batch.FilePath,
		)
		if err != nil {
			return errors.Wrapf(err, "insert transaction %s", t.ID)
		}
	}

	for _, b := range batch.Budgets {
		if err := saveBudget(tx, b, !batch.StatedStatus[b.ID]); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes)
		VALUES (?, ?, ?)`, batch.FilePath, fi.MtimeNs, fi.SizeBytes)
	if err != nil {
		return errors.Wrap(err, "track file")
	}
	return errors.Wrap(tx.Commit(), "commit import")
}

// SaveBudget upserts a budget's configuration and allocations.
func (s *SQLite) SaveBudget(b model.Budget) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin save budget")
	}
	defer func() { _ = tx.Rollback() }()
	if err := saveBudget(tx, b, false); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit budget")
}

// saveBudget upserts b. With keepStatus an existing row's status is left as
// is; b.Status is only used when the budget is new.
func saveBudget(tx *sql.Tx, b model.Budget, keepStatus bool) error {
	status := ", status = excluded.status"
	if keepStatus {
		status = ""
	}
	_, err := tx.Exec(`INSERT INTO budgets (id, name, period_type, start_date, end_date, total_amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, period_type = excluded.period_type,
			start_date = excluded.start_date, end_date = excluded.end_date,
			total_amount = excluded.total_amount`+status,
		b.ID, b.Name, string(b.PeriodType),
		model.Day(b.StartDate).Format(dateLayout), model.Day(b.EndDate).Format(dateLayout),
		b.TotalAmount.String(), string(b.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "upsert budget %s", b.ID)
	}

	for _, a := range b.Allocations {
		_, err := tx.Exec(`INSERT INTO budget_allocations
			(budget_id, category_id, allocated_amount, alert_at_80, alert_at_100)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (budget_id, category_id) DO UPDATE SET
				allocated_amount = excluded.allocated_amount,
				alert_at_80 = excluded.alert_at_80,
				alert_at_100 = excluded.alert_at_100`,
			b.ID, a.CategoryID, a.AllocatedAmount.String(), boolInt(a.AlertAt80), boolInt(a.AlertAt100),
		)
		if err != nil {
			return errors.Wrapf(err, "upsert allocation %s/%s", b.ID, a.CategoryID)
		}
	}
	return nil
}

// DeleteFileTracker forgets an imported file so the next import re-reads it.
func (s *SQLite) DeleteFileTracker(filePath string) error {
	_, err := s.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", filePath)
	return errors.Wrap(err, "delete file tracker")
}

// Counts reports how many transactions and budgets are stored.
func (s *SQLite) Counts() (txs, budgets int, err error) {
	if err = s.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&txs); err != nil {
		return 0, 0, errors.Wrap(err, "count transactions")
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM budgets").Scan(&budgets); err != nil {
		return 0, 0, errors.Wrap(err, "count budgets")
	}
	return txs, budgets, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
