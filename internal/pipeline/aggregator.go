// Package pipeline turns ledger rows into period series and loads ledger
// exports into the local store.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// Aggregate buckets completed ledger amounts into contiguous periods covering
// [start, end]. Every period is present, zero-valued when it has no activity.
func Aggregate(ctx context.Context, r ledger.Reader, start, end time.Time, g model.Granularity) ([]model.PeriodBucket, error) {
	buckets, err := Buckets(start, end, g)
	if err != nil {
		return nil, err
	}

	txs, err := r.QueryTransactions(ctx, model.TxQuery{
		Status: model.Completed,
		From:   model.Day(start),
		To:     model.Day(end),
	})
	if err != nil {
		return nil, ledger.ReadFailure("aggregate", err)
	}

	for _, tx := range txs {
		if tx.Status != model.Completed {
			continue
		}
		i := bucketIndex(buckets, model.Day(tx.OccurredOn))
		if i < 0 {
			continue
		}
		switch tx.Kind {
		case model.Income:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case model.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	return buckets, nil
}

// Buckets lays out empty periods covering [start, end]. Day buckets are single
// days, week buckets are 7-day runs anchored at start, month buckets follow the
// calendar. The trailing bucket is clipped to end.
func Buckets(start, end time.Time, g model.Granularity) ([]model.PeriodBucket, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return nil, ledger.Errorf(ledger.ErrInvalidRange, "aggregate", "end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	switch g {
	case model.GranularityDay, model.GranularityWeek, model.GranularityMonth:
	default:
		return nil, ledger.Errorf(ledger.ErrValidation, "aggregate", "unknown granularity %q", g)
	}

	var out []model.PeriodBucket
	for cur := start; !cur.After(end); {
		next := g.Next(cur)
		last := next.AddDate(0, 0, -1)
		if last.After(end) {
			last = end
		}
		out = append(out, model.PeriodBucket{
			Label:   g.Label(cur),
			Start:   cur,
			End:     last,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		})
		cur = next
	}
	return out, nil
}

func bucketIndex(buckets []model.PeriodBucket, day time.Time) int {
	i := sort.Search(len(buckets), func(i int) bool {
		return !buckets[i].End.Before(day)
	})
	if i == len(buckets) || day.Before(buckets[i].Start) {
		return -1
	}
	return i
}

// IncomeSeries extracts bucket income totals as floats for the forecaster.
func IncomeSeries(buckets []model.PeriodBucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Income.InexactFloat64()
	}
	return out
}

// AggregateCategories sums completed expenses per category in [start, end],
// largest first.
func AggregateCategories(ctx context.Context, r ledger.Reader, start, end time.Time) ([]model.CategoryTotal, error) {
	if model.Day(end).Before(model.Day(start)) {
		return nil, ledger.Errorf(ledger.ErrInvalidRange, "aggregate categories", "end before start")
	}
	txs, err := r.QueryTransactions(ctx, model.TxQuery{
		Kind:   model.Expense,
		Status: model.Completed,
		From:   model.Day(start),
		To:     model.Day(end),
	})
	if err != nil {
		return nil, ledger.ReadFailure("aggregate categories", err)
	}

	catMap := make(map[string]*model.CategoryTotal)
	total := decimal.Zero
	for _, tx := range txs {
		ct, ok := catMap[tx.CategoryID]
		if !ok {
			ct = &model.CategoryTotal{CategoryID: tx.CategoryID, Spent: decimal.Zero}
			catMap[tx.CategoryID] = ct
		}
		ct.Spent = ct.Spent.Add(tx.Amount)
		ct.Count++
		total = total.Add(tx.Amount)
	}

	cats := make([]model.CategoryTotal, 0, len(catMap))
	for _, ct := range catMap {
		if total.IsPositive() {
			ct.SharePercent = ct.Spent.Div(total).InexactFloat64() * 100
		}
		cats = append(cats, *ct)
	}
	sort.Slice(cats, func(i, j int) bool {
		if c := cats[i].Spent.Cmp(cats[j].Spent); c != 0 {
			return c > 0
		}
		return cats[i].CategoryID < cats[j].CategoryID
	})
	return cats, nil
}
