// Package store persists the ledger and budget snapshots in SQLite or reads
// them from Postgres. Both implement ledger.Store.
package store

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/fincast/internal/model"
)

const dateLayout = "2006-01-02"

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// txWhere builds the WHERE clause and args for a transaction query. Dates are
// passed through dateArg so each dialect can bind them natively.
func txWhere(q model.TxQuery, ph placeholder, dateArg func(t model.TxQuery, from bool) any) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}

	if q.Kind != "" {
		add("kind = %s", string(q.Kind))
	}
	if q.Status != "" {
		add("status = %s", string(q.Status))
	}
	if q.CategoryID != "" {
		add("category_id = %s", q.CategoryID)
	}
	if !q.From.IsZero() {
		add("occurred_on >= %s", dateArg(q, true))
	}
	if !q.To.IsZero() {
		add("occurred_on <= %s", dateArg(q, false))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
