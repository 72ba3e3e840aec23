package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/tui/components"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	d := a.data
	hs := d.Health
	cf := d.CashFlow
	var b strings.Builder

	// Row 1: headline cards
	netColor := t.Income()
	if cf.AvgNet < 0 {
		netColor = t.Red
	}
	metrics := []components.Metric{
		{Label: "Health", Value: fmt.Sprintf("%s  %s", cli.FormatScore(hs.Overall), hs.Grade), Color: t.ForScore(hs.Overall),
			Delta: "as of " + hs.AsOf.Format("2006-01-02")},
		{Label: "Balance", Value: cli.FormatMoney(cf.ClosingBalance),
			Delta: "opened at " + cli.FormatMoney(cf.OpeningBalance)},
		{Label: "Avg Net / Month", Value: cli.FormatSigned(cf.AvgNet), Color: netColor,
			Delta: "trend " + string(cf.Trend)},
		{Label: "Avg Income / Month", Value: cli.FormatMoney(cf.AvgIncome), Color: t.Income(),
			Delta: "expense " + cli.FormatMoney(cf.AvgExpense)},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	// Row 2: sub-scores + recommendations
	halves := components.LayoutRow(cw, 2)
	scoreW := halves[0]
	if a.isCompactLayout() {
		scoreW = cw
	}
	inner := components.CardInnerWidth(scoreW)
	labelW := 14
	barW := max(inner-labelW-8, 5)

	var scores strings.Builder
	for _, s := range []struct {
		label string
		v     float64
	}{
		{"Profitability", hs.Profitability},
		{"Cash flow", hs.CashFlow},
		{"Growth", hs.Growth},
		{"Efficiency", hs.Efficiency},
	} {
		scores.WriteString(components.ScoreBar(s.label, s.v, labelW, barW))
		scores.WriteString("\n")
	}
	scoreCard := components.ContentCard("Health Sub-scores", scores.String(), scoreW)

	recStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	bulletStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	recW := halves[1]
	if a.isCompactLayout() {
		recW = cw
	}
	var recs strings.Builder
	for _, r := range hs.Recommendations {
		recs.WriteString(bulletStyle.Render("• "))
		recs.WriteString(recStyle.Render(truncStr(r, components.CardInnerWidth(recW)-2)))
		recs.WriteString("\n")
	}
	recCard := components.ContentCard("Recommendations", recs.String(), recW)

	if a.isCompactLayout() {
		b.WriteString(scoreCard)
		b.WriteString("\n")
		b.WriteString(recCard)
	} else {
		b.WriteString(components.CardRow([]string{scoreCard, recCard}))
	}
	b.WriteString("\n")

	// Row 3: top expense categories
	b.WriteString(a.renderCategoryCard(cw))

	return b.String()
}

func (a App) renderCategoryCard(cw int) string {
	t := theme.Active
	cats := a.data.Categories
	title := fmt.Sprintf("Spending by Category (%s – %s)",
		a.data.Start.Format("Jan 2006"), a.data.End.Format("Jan 2006"))
	if len(cats) == 0 {
		return components.ContentCard(title,
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No completed expenses in range"), cw)
	}

	innerW := components.CardInnerWidth(cw)
	limit := min(len(cats), 8)

	nameW := max(innerW/4, 10)
	amtW := 14
	barMax := max(innerW-nameW-amtW-8, 1)
	maxSpent := cats[0].Spent.InexactFloat64()
	for _, c := range cats[:limit] {
		maxSpent = max(maxSpent, c.Spent.InexactFloat64())
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Expense()).Background(t.Surface)
	numStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var body strings.Builder
	for _, c := range cats[:limit] {
		spent := c.Spent.InexactFloat64()
		barLen := 0
		if maxSpent > 0 {
			barLen = int(spent / maxSpent * float64(barMax))
		}
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(c.CategoryID, nameW))))
		body.WriteString(spaceStyle.Render(" "))
		body.WriteString(numStyle.Render(fmt.Sprintf("%*s", amtW, cli.FormatMoney(spent))))
		body.WriteString(spaceStyle.Render(" "))
		body.WriteString(barStyle.Render(strings.Repeat("█", barLen)))
		body.WriteString(spaceStyle.Render(" "))
		body.WriteString(numStyle.Render(fmt.Sprintf("%.0f%%", c.SharePercent)))
		body.WriteString("\n")
	}
	if len(cats) > limit {
		body.WriteString(numStyle.Render(fmt.Sprintf("… %d more", len(cats)-limit)))
	}

	return components.ContentCard(title, body.String(), cw)
}
