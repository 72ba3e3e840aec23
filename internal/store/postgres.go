package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// Postgres reads an externally managed ledger. The only write is the spend
// snapshot upsert; schema management belongs to the ledger's owner.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func pgDate(q model.TxQuery, from bool) any {
	if from {
		return model.Day(q.From)
	}
	return model.Day(q.To)
}

func (p *Postgres) QueryTransactions(ctx context.Context, q model.TxQuery) ([]model.Transaction, error) {
	where, args := txWhere(q, dollar, pgDate)
	rows, err := p.pool.Query(ctx, `SELECT id::text, kind, amount::text, currency, occurred_on, status, category_id
		FROM transactions`+where+` ORDER BY occurred_on, id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			tx           model.Transaction
			kind, status string
			amount       string
		)
		if err := rows.Scan(&tx.ID, &kind, &amount, &tx.Currency, &tx.OccurredOn, &status, &tx.CategoryID); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		tx.Kind, tx.Status = model.TxKind(kind), model.TxStatus(status)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, errors.Wrapf(err, "transaction %s: amount", tx.ID)
		}
		out = append(out, tx)
	}
	return out, errors.Wrap(rows.Err(), "iterate transactions")
}

func (p *Postgres) LoadBudget(ctx context.Context, id string) (model.Budget, error) {
	bs, err := p.loadBudgets(ctx, `WHERE id = $1`, id)
	if err != nil {
		return model.Budget{}, err
	}
	if len(bs) == 0 {
		return model.Budget{}, ledger.Errorf(ledger.ErrNotFound, "load budget", "budget %q", id)
	}
	return bs[0], nil
}

func (p *Postgres) ListBudgets(ctx context.Context, status model.BudgetStatus) ([]model.Budget, error) {
	if status == "" {
		return p.loadBudgets(ctx, "")
	}
	return p.loadBudgets(ctx, `WHERE status = $1`, string(status))
}

func (p *Postgres) loadBudgets(ctx context.Context, where string, args ...any) ([]model.Budget, error) {
	rows, err := p.pool.Query(ctx, `SELECT id::text, name, period_type, start_date, end_date, total_amount::text, status
		FROM budgets `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query budgets")
	}
	budgets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Budget, error) {
		var (
			b           model.Budget
			pt, st, tot string
		)
		if err := row.Scan(&b.ID, &b.Name, &pt, &b.StartDate, &b.EndDate, &tot, &st); err != nil {
			return b, err
		}
		b.PeriodType, b.Status = model.PeriodType(pt), model.BudgetStatus(st)
		total, err := decimal.NewFromString(tot)
		b.TotalAmount = total
		return b, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan budgets")
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	ids := make([]string, len(budgets))
	idx := make(map[string]int, len(budgets))
	for i, b := range budgets {
		ids[i] = b.ID
		idx[b.ID] = i
	}

	allocRows, err := p.pool.Query(ctx, `SELECT
		a.budget_id::text, a.category_id::text, a.allocated_amount::text, a.alert_at_80, a.alert_at_100,
		s.spent_amount::text, s.last_alert_sent_at, s.refreshed_at
		FROM budget_allocations a
		LEFT JOIN allocation_spend s ON s.budget_id = a.budget_id AND s.category_id = a.category_id
		WHERE a.budget_id::text = ANY($1)
		ORDER BY a.budget_id, a.category_id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query allocations")
	}
	defer allocRows.Close()

	for allocRows.Next() {
		var (
			a         model.Allocation
			allocated string
			spent     *string
			last      *time.Time
			fresh     *time.Time
		)
		if err := allocRows.Scan(&a.BudgetID, &a.CategoryID, &allocated, &a.AlertAt80, &a.AlertAt100, &spent, &last, &fresh); err != nil {
			return nil, errors.Wrap(err, "scan allocation")
		}
		if a.AllocatedAmount, err = decimal.NewFromString(allocated); err != nil {
			return nil, errors.Wrapf(err, "allocation %s/%s: amount", a.BudgetID, a.CategoryID)
		}
		a.Spend = model.SpendSnapshot{BudgetID: a.BudgetID, CategoryID: a.CategoryID, SpentAmount: decimal.Zero, LastAlertSentAt: last}
		if spent != nil {
			if a.Spend.SpentAmount, err = decimal.NewFromString(*spent); err != nil {
				return nil, errors.Wrapf(err, "allocation %s/%s: spent", a.BudgetID, a.CategoryID)
			}
		}
		if fresh != nil {
			a.Spend.RefreshedAt = *fresh
		}
		i := idx[a.BudgetID]
		budgets[i].Allocations = append(budgets[i].Allocations, a)
	}
	return budgets, errors.Wrap(allocRows.Err(), "iterate allocations")
}

func (p *Postgres) SaveSpent(ctx context.Context, snap model.SpendSnapshot) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO allocation_spend
		(budget_id, category_id, spent_amount, refreshed_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (budget_id, category_id) DO UPDATE SET
			spent_amount = EXCLUDED.spent_amount,
			refreshed_at = EXCLUDED.refreshed_at`,
		snap.BudgetID, snap.CategoryID, snap.SpentAmount.String(), snap.RefreshedAt,
	)
	return errors.Wrapf(err, "save spent %s/%s", snap.BudgetID, snap.CategoryID)
}

// MarkAlerted claims the alert with a conditional upsert; the row lock taken
// by ON CONFLICT serializes competing claims.
func (p *Postgres) MarkAlerted(ctx context.Context, budgetID, categoryID string, at time.Time, cooldown time.Duration) (bool, error) {
	tag, err := p.pool.Exec(ctx, `INSERT INTO allocation_spend
		(budget_id, category_id, spent_amount, last_alert_sent_at, refreshed_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (budget_id, category_id) DO UPDATE SET
			last_alert_sent_at = EXCLUDED.last_alert_sent_at
		WHERE allocation_spend.last_alert_sent_at IS NULL
			OR allocation_spend.last_alert_sent_at <= $4`,
		budgetID, categoryID, at, at.Add(-cooldown),
	)
	if err != nil {
		return false, errors.Wrapf(err, "mark alerted %s/%s", budgetID, categoryID)
	}
	return tag.RowsAffected() > 0, nil
}
