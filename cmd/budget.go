package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/budget"
	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/model"
)

var flagBudgetStatus string

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Track budgets: spend refresh, alerts and burn-rate reports",
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets",
	Args:  cobra.NoArgs,
	RunE:  runBudgetList,
}

var budgetShowCmd = &cobra.Command{
	Use:   "show <budget-id>",
	Short: "Per-allocation spend, burn rate, projection and recommendations",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetShow,
}

var budgetRefreshCmd = &cobra.Command{
	Use:   "refresh [budget-id]",
	Short: "Recompute spent amounts from the ledger (all active budgets when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBudgetRefresh,
}

var budgetAlertsCmd = &cobra.Command{
	Use:   "alerts <budget-id>",
	Short: "Check thresholds and emit alerts for one active budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetAlerts,
}

var budgetTransitions = map[string]func(*model.Budget) error{
	"activate": budget.Activate,
	"complete": budget.Complete,
	"cancel":   budget.Cancel,
}

func init() {
	budgetListCmd.Flags().StringVar(&flagBudgetStatus, "status", "", "Filter by status: draft, active, completed, cancelled")

	budgetCmd.AddCommand(budgetListCmd, budgetShowCmd, budgetRefreshCmd, budgetAlertsCmd)
	for _, verb := range []string{"activate", "complete", "cancel"} {
		budgetCmd.AddCommand(&cobra.Command{
			Use:   verb + " <budget-id>",
			Short: fmt.Sprintf("Move a budget to %s (sqlite ledger only)", verbStatus(verb)),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBudgetTransition(cmd, verb, args[0])
			},
		})
	}
	rootCmd.AddCommand(budgetCmd)
}

func verbStatus(verb string) model.BudgetStatus {
	switch verb {
	case "activate":
		return model.BudgetActive
	case "complete":
		return model.BudgetCompleted
	}
	return model.BudgetCancelled
}

func runBudgetList(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	now, err := asOf()
	if err != nil {
		return err
	}
	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	budgets, err := eng.ListBudgets(ctx, model.BudgetStatus(flagBudgetStatus))
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(budgets)
	}
	if len(budgets) == 0 {
		fmt.Println("\n  No budgets found. Import a ledger export with budgets first.")
		return nil
	}

	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		var spent, allocated float64
		for _, a := range b.Allocations {
			spent += a.Spend.SpentAmount.InexactFloat64()
			allocated += a.AllocatedAmount.InexactFloat64()
		}
		pct := ""
		if allocated > 0 {
			pct = cli.FormatPercent(spent / allocated * 100)
		}
		rows = append(rows, []string{
			b.ID,
			b.Name,
			string(b.StatusAt(now)),
			b.StartDate.Format("2006-01-02") + " → " + b.EndDate.Format("2006-01-02"),
			cli.FormatDecimal(b.TotalAmount),
			pct,
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Budgets (%d)", len(budgets)),
		Headers: []string{"ID", "Name", "Status", "Period", "Total", "Spent"},
		Rows:    rows,
	}))
	fmt.Println(cli.RenderMuted("  Spent reflects the last refresh. Run `fincast budget refresh` to update."))
	return nil
}

func runBudgetShow(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	now, err := asOf()
	if err != nil {
		return err
	}
	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rep, err := eng.BudgetReport(ctx, args[0], now)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(rep)
	}

	b := rep.Budget
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s", b.Name)))
	fmt.Println()
	fmt.Printf("  %s %s → %s   status %s   total %s\n\n",
		b.PeriodType, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"),
		b.StatusAt(now), cli.FormatDecimal(b.TotalAmount))

	rows := make([][]string, 0, len(rep.Allocations)+2)
	for _, a := range rep.Allocations {
		rows = append(rows, []string{
			a.CategoryID,
			cli.FormatDecimal(a.Allocated),
			cli.FormatDecimal(a.Spent),
			cli.FormatDecimal(a.Remaining),
			cli.RenderProgressBar(a.SpentPct, 12),
			cli.FormatPercent(a.TimeElapsedPct),
			cli.FormatDecimal(a.BurnRate) + "/d",
			cli.FormatDecimal(a.ProjectedSpend),
			cli.RenderStatus(a.Status),
		})
	}
	rows = append(rows, []string{cli.Separator})
	rows = append(rows, []string{"Total", cli.FormatDecimal(rep.TotalAllocated), cli.FormatDecimal(rep.TotalSpent)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Allocated", "Spent", "Remaining", "Used", "Time", "Burn", "Projected", "Status"},
		Rows:    rows,
	}))

	for _, a := range rep.Allocations {
		if len(a.Recommendations) == 0 {
			continue
		}
		fmt.Printf("\n  %s\n", a.CategoryID)
		for _, r := range a.Recommendations {
			fmt.Printf("    • %s\n", r)
		}
	}
	fmt.Println()
	return nil
}

func runBudgetRefresh(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	now, err := asOf()
	if err != nil {
		return err
	}
	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(args) == 1 {
		b, err := eng.RefreshBudgetSpend(ctx, args[0], now)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(b)
		}
		fmt.Printf("  Refreshed %s (%d allocations)\n", b.ID, len(b.Allocations))
		return nil
	}

	res, batchErr := eng.RefreshAllBudgets(ctx, now)
	if flagJSON {
		if err := printJSON(res); err != nil {
			return err
		}
		return batchErr
	}

	fmt.Printf("  Refreshed %d active budgets, %d alerts\n", len(res.Refreshed), len(res.Alerts))
	printAlerts(res.Alerts)
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", f.BudgetID, f.Err)
	}
	return batchErr
}

func runBudgetAlerts(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	now, err := asOf()
	if err != nil {
		return err
	}
	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := eng.CheckBudgetAlerts(ctx, args[0], now)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(alerts)
	}
	if len(alerts) == 0 {
		fmt.Println("  No thresholds crossed.")
		return nil
	}
	printAlerts(alerts)
	return nil
}

func printAlerts(alerts []model.Alert) {
	if len(alerts) == 0 {
		return
	}
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			a.BudgetID,
			a.CategoryID,
			string(a.Type),
			cli.FormatPercent(a.Percentage),
			cli.FormatDecimal(a.Spent) + " / " + cli.FormatDecimal(a.Allocated),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Alerts",
		Headers: []string{"Budget", "Category", "Type", "Used", "Spent"},
		Rows:    rows,
	}))
}

// budgetWriter is the configuration write side only the local ledger has.
type budgetWriter interface {
	SaveBudget(b model.Budget) error
}

func runBudgetTransition(cmd *cobra.Command, verb, id string) error {
	ctx := commandContext(cmd)
	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	w, ok := st.(budgetWriter)
	if !ok {
		return errors.New("budget status changes need the sqlite ledger; the postgres ledger is managed by its owner")
	}

	b, err := st.LoadBudget(ctx, id)
	if err != nil {
		return err
	}
	if err := budgetTransitions[verb](&b); err != nil {
		return err
	}
	if err := w.SaveBudget(b); err != nil {
		return err
	}
	fmt.Printf("  Budget %s is now %s\n", b.ID, b.Status)
	return nil
}
