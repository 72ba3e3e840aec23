package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/cli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Grade financial health (profitability, cash flow, growth, efficiency)",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
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

	hs, err := eng.ComputeHealthScore(ctx, now)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(hs)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FINANCIAL HEALTH  %s", hs.AsOf.Format("2006-01-02"))))
	fmt.Println()

	bar := func(s float64) string {
		return cli.RenderScoreBar(s, 20)
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Score", "Value"},
		Rows: [][]string{
			{"Profitability", bar(hs.Profitability)},
			{"Cash flow", bar(hs.CashFlow)},
			{"Growth", bar(hs.Growth)},
			{"Efficiency", bar(hs.Efficiency)},
			{cli.Separator},
			{"Overall", bar(hs.Overall)},
			{"Grade", cli.RenderGrade(hs.Grade)},
		},
	}))

	if len(hs.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("  Recommendations")
		for _, r := range hs.Recommendations {
			fmt.Printf("    • %s\n", r)
		}
	}
	fmt.Println()
	return nil
}

// commandContext is the command's context, falling back to Background for
// direct RunE calls.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
