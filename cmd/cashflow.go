package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/model"
)

var (
	flagCfFrom    string
	flagCfTo      string
	flagCfProject int
)

var cashflowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Monthly cash-flow statement, trend and projection",
	RunE:  runCashFlow,
}

func init() {
	cashflowCmd.Flags().StringVar(&flagCfFrom, "from", "", "First day (YYYY-MM-DD)")
	cashflowCmd.Flags().StringVar(&flagCfTo, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	cashflowCmd.Flags().IntVarP(&flagCfProject, "project", "p", 0, "Also project this many months ahead")
	rootCmd.AddCommand(cashflowCmd)
}

type cashflowOutput struct {
	Analysis   model.CashFlowAnalysis  `json:"analysis"`
	Projection []model.ProjectionPoint `json:"projection,omitempty"`
}

func runCashFlow(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	start, end, err := rangeFlags(flagCfFrom, flagCfTo)
	if err != nil {
		return err
	}

	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var out cashflowOutput
	if flagCfProject > 0 {
		out.Analysis, out.Projection, err = eng.ProjectCashFlow(ctx, start, end, flagCfProject)
	} else {
		out.Analysis, err = eng.AnalyzeCashFlow(ctx, start, end)
	}
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(out)
	}

	a := out.Analysis
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CASH FLOW  %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))))
	fmt.Println()

	nets := make([]float64, 0, len(a.Periods))
	rows := make([][]string, 0, len(a.Periods))
	for _, p := range a.Periods {
		nets = append(nets, p.Net)
		rows = append(rows, []string{
			p.Label,
			cli.FormatMoney(p.Opening),
			cli.FormatMoney(p.Income),
			cli.FormatMoney(p.Expense),
			cli.RenderAmount(p.Net),
			cli.RenderAmount(p.Closing),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Opening", "Income", "Expense", "Net", "Closing"},
		Rows:    rows,
	}))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Avg income", cli.FormatMoney(a.AvgIncome)},
			{"Avg expense", cli.FormatMoney(a.AvgExpense)},
			{"Avg net", cli.FormatSigned(a.AvgNet)},
			{"Volatility", cli.FormatMoney(a.Volatility)},
			{"Trend", string(a.Trend) + "  " + cli.RenderSparkline(nets)},
		},
	}))

	if len(out.Projection) > 0 {
		fmt.Println()
		prows := make([][]string, 0, len(out.Projection))
		for _, p := range out.Projection {
			prows = append(prows, []string{
				fmt.Sprintf("+%d", p.Month),
				cli.RenderForecast(cli.FormatMoney(p.Income)),
				cli.RenderForecast(cli.FormatMoney(p.Expense)),
				cli.RenderAmount(p.Net),
				cli.RenderAmount(p.Balance),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Projection",
			Headers: []string{"Month", "Income", "Expense", "Net", "Balance"},
			Rows:    prows,
		}))
		fmt.Println(cli.RenderMuted("  Heuristic: income and expense step with the trend."))
	}
	fmt.Println()
	return nil
}
