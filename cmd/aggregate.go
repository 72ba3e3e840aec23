package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/model"
)

var (
	flagAggFrom        string
	flagAggTo          string
	flagAggGranularity string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Bucket completed income and expense by day, week or month",
	RunE:  runAggregate,
}

func init() {
	aggregateCmd.Flags().StringVar(&flagAggFrom, "from", "", "First day (YYYY-MM-DD, default start of the history window)")
	aggregateCmd.Flags().StringVar(&flagAggTo, "to", "", "Last day, inclusive (YYYY-MM-DD, default end of the last completed month)")
	aggregateCmd.Flags().StringVarP(&flagAggGranularity, "granularity", "g", "", "day, week or month (default from config)")
	rootCmd.AddCommand(aggregateCmd)
}

// rangeFlags resolves --from/--to over the default history window.
func rangeFlags(from, to string) (start, end time.Time, err error) {
	now, err := asOf()
	if err != nil {
		return start, end, err
	}
	start, end = historyRange(now)
	if from != "" {
		if start, err = model.ParseDate(from); err != nil {
			return start, end, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if end, err = model.ParseDate(to); err != nil {
			return start, end, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return start, end, nil
}

func granularityFlag(flag string) (model.Granularity, error) {
	if flag == "" {
		flag = cfg.Forecast.Granularity
	}
	return model.ParseGranularity(flag)
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	start, end, err := rangeFlags(flagAggFrom, flagAggTo)
	if err != nil {
		return err
	}
	g, err := granularityFlag(flagAggGranularity)
	if err != nil {
		return err
	}

	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	buckets, err := eng.Aggregate(ctx, start, end, g)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(buckets)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("LEDGER  %s to %s by %s",
		start.Format("2006-01-02"), end.Format("2006-01-02"), g)))
	fmt.Println()

	var income, expense decimal.Decimal
	rows := make([][]string, 0, len(buckets)+2)
	for _, b := range buckets {
		income = income.Add(b.Income)
		expense = expense.Add(b.Expense)
		net := b.Net()
		rows = append(rows, []string{
			b.Label,
			cli.FormatDecimal(b.Income),
			cli.FormatDecimal(b.Expense),
			cli.RenderAmount(net.InexactFloat64()),
		})
	}
	rows = append(rows, []string{cli.Separator})
	rows = append(rows, []string{
		"Total",
		cli.FormatDecimal(income),
		cli.FormatDecimal(expense),
		cli.RenderAmount(income.Sub(expense).InexactFloat64()),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Period", "Income", "Expense", "Net"},
		Rows:    rows,
	}))
	return nil
}
