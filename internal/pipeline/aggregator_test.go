package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(kind model.TxKind, amount int64, on string, status model.TxStatus) model.Transaction {
	return model.Transaction{
		Kind: kind, Amount: decimal.NewFromInt(amount), OccurredOn: day(on),
		Status: status, CategoryID: "general",
	}
}

type failingReader struct{ err error }

func (f failingReader) QueryTransactions(context.Context, model.TxQuery) ([]model.Transaction, error) {
	return nil, f.err
}

func TestBucketCounts(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		g     model.Granularity
		want  int
	}{
		{"single day", "2024-01-01", "2024-01-01", model.GranularityDay, 1},
		{"ten days", "2024-01-01", "2024-01-10", model.GranularityDay, 10},
		{"two full weeks", "2024-01-01", "2024-01-14", model.GranularityWeek, 2},
		{"partial week", "2024-01-01", "2024-01-15", model.GranularityWeek, 3},
		{"six months", "2024-01-01", "2024-06-30", model.GranularityMonth, 6},
		{"mid-month start", "2024-01-15", "2024-03-10", model.GranularityMonth, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(context.Background(), ledger.NewMemory(), day(tt.start), day(tt.end), tt.g)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d buckets, want %d", len(got), tt.want)
			}
			if !got[0].Start.Equal(day(tt.start)) || !got[len(got)-1].End.Equal(day(tt.end)) {
				t.Fatalf("buckets do not cover range: %s..%s", got[0].Start, got[len(got)-1].End)
			}
			for i := 1; i < len(got); i++ {
				if !got[i].Start.Equal(got[i-1].End.AddDate(0, 0, 1)) {
					t.Fatalf("gap between bucket %d and %d", i-1, i)
				}
			}
			for _, b := range got {
				if !b.Income.IsZero() || !b.Expense.IsZero() {
					t.Fatalf("empty ledger produced non-zero bucket %+v", b)
				}
			}
		})
	}
}

func TestAggregateConservesIncome(t *testing.T) {
	mem := ledger.NewMemory()
	mem.AddTransactions(
		tx(model.Income, 100, "2024-01-05", model.Completed),
		tx(model.Income, 250, "2024-02-28", model.Completed),
		tx(model.Income, 999, "2024-02-10", model.Pending),
		tx(model.Income, 75, "2024-03-31", model.Completed),
		tx(model.Income, 500, "2024-04-01", model.Completed),
		tx(model.Expense, 40, "2024-02-01", model.Completed),
		tx(model.Expense, 60, "2024-02-01", model.Refunded),
	)

	got, err := Aggregate(context.Background(), mem, day("2024-01-01"), day("2024-03-31"), model.GranularityMonth)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d buckets", len(got))
	}

	total := decimal.Zero
	for _, b := range got {
		total = total.Add(b.Income)
	}
	if !total.Equal(decimal.NewFromInt(425)) {
		t.Fatalf("income total = %s, want 425", total)
	}
	if got[1].Label != "2024-02" || !got[1].Income.Equal(decimal.NewFromInt(250)) || !got[1].Expense.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("february bucket = %+v", got[1])
	}
}

func TestAggregateInvalidRange(t *testing.T) {
	_, err := Aggregate(context.Background(), ledger.NewMemory(), day("2024-02-01"), day("2024-01-01"), model.GranularityDay)
	if !errors.Is(err, ledger.ErrInvalidRange) {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
}

func TestAggregatePropagatesReadFailure(t *testing.T) {
	boom := errors.New("db down")
	_, err := Aggregate(context.Background(), failingReader{boom}, day("2024-01-01"), day("2024-01-31"), model.GranularityWeek)
	if !errors.Is(err, ledger.ErrExternalRead) || !errors.Is(err, boom) {
		t.Fatalf("want wrapped external read failure, got %v", err)
	}
}

func TestAggregateCategories(t *testing.T) {
	mem := ledger.NewMemory()
	food := tx(model.Expense, 30, "2024-01-02", model.Completed)
	food.CategoryID = "food"
	rent := tx(model.Expense, 90, "2024-01-03", model.Completed)
	rent.CategoryID = "rent"
	mem.AddTransactions(food, rent, tx(model.Income, 1000, "2024-01-01", model.Completed))

	cats, err := AggregateCategories(context.Background(), mem, day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].CategoryID != "rent" || cats[0].SharePercent != 75 {
		t.Fatalf("unexpected categories %+v", cats)
	}
}
