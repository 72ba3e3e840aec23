package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/tui/components"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

func (a App) renderCashFlowTab(cw int) string {
	t := theme.Active
	cf := a.data.CashFlow
	var b strings.Builder

	metrics := []components.Metric{
		{Label: "Opening", Value: cli.FormatMoney(cf.OpeningBalance)},
		{Label: "Closing", Value: cli.FormatMoney(cf.ClosingBalance)},
		{Label: "Volatility", Value: cli.FormatMoney(cf.Volatility), Delta: "stddev of monthly net"},
		{Label: "Trend", Value: string(cf.Trend), Color: trendColor(string(cf.Trend))},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	nets := make([]float64, len(cf.Periods))
	for i, p := range cf.Periods {
		nets[i] = p.Net
	}
	spark := components.Sparkline(nets, t.Accent)

	hist := cli.Table{Headers: []string{"Month", "Income", "Expense", "Net", "Closing"}}
	for _, p := range cf.Periods {
		hist.Rows = append(hist.Rows, []string{
			p.Label,
			cli.FormatMoney(p.Income),
			cli.FormatMoney(p.Expense),
			cli.RenderAmount(p.Net),
			cli.RenderAmount(p.Closing),
		})
	}

	proj := cli.Table{Headers: []string{"+Month", "Income", "Expense", "Net", "Balance"}}
	for _, p := range a.data.Projection {
		proj.Rows = append(proj.Rows, []string{
			fmt.Sprintf("+%d", p.Month),
			cli.RenderForecast(cli.FormatMoney(p.Income)),
			cli.RenderForecast(cli.FormatMoney(p.Expense)),
			cli.RenderAmount(p.Net),
			cli.RenderAmount(p.Balance),
		})
	}

	muted := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	histBody := spark + "\n" + strings.TrimRight(cli.RenderTable(hist), "\n")
	projBody := strings.TrimRight(cli.RenderTable(proj), "\n") + "\n" +
		muted.Render("heuristic: income and expense step with the trend")

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Monthly cash flow", histBody, cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard(fmt.Sprintf("Projection (%d months)", len(a.data.Projection)), projBody, cw))
		return b.String()
	}

	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Monthly cash flow", histBody, halves[0]),
		components.ContentCard(fmt.Sprintf("Projection (%d months)", len(a.data.Projection)), projBody, halves[1]),
	}))
	return b.String()
}

func trendColor(trend string) lipgloss.Color {
	t := theme.Active
	switch trend {
	case "improving":
		return t.GreenBright
	case "declining":
		return t.Red
	}
	return t.TextPrimary
}
