package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/tui/components"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

// budgetsState holds the budgets tab state.
type budgetsState struct {
	cursor       int
	offset       int // scroll offset for the list
	detailScroll int
}

func (a App) budgetCount() int {
	if a.data == nil {
		return 0
	}
	return len(a.data.Budgets)
}

func (a *App) clampBudgetCursor() {
	n := a.budgetCount()
	if a.budgets.cursor >= n {
		a.budgets.cursor = n - 1
	}
	if a.budgets.cursor < 0 {
		a.budgets.cursor = 0
	}
	a.budgets.detailScroll = 0
}

// updateBudgetsKey handles list navigation; ok is false for keys it ignores.
func (a App) updateBudgetsKey(key string) (tea.Model, tea.Cmd, bool) {
	n := a.budgetCount()
	halfPage := max((a.height-scrollOverhead)/2, minHalfPageScroll)

	switch key {
	case "j", "down":
		if a.budgets.cursor < n-1 {
			a.budgets.cursor++
			a.budgets.detailScroll = 0
		}
	case "k", "up":
		if a.budgets.cursor > 0 {
			a.budgets.cursor--
			a.budgets.detailScroll = 0
		}
	case "g":
		a.budgets.cursor = 0
		a.budgets.offset = 0
		a.budgets.detailScroll = 0
	case "G":
		a.budgets.cursor = max(n-1, 0)
		a.budgets.detailScroll = 0
	case "J":
		a.budgets.detailScroll++
	case "K":
		a.budgets.detailScroll = max(a.budgets.detailScroll-1, 0)
	case "ctrl+d":
		a.budgets.detailScroll += halfPage
	case "ctrl+u":
		a.budgets.detailScroll = max(a.budgets.detailScroll-halfPage, 0)
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) renderBudgetsTab(cw, h int) string {
	t := theme.Active
	reports := a.data.Budgets
	if len(reports) == 0 {
		return components.ContentCard("Budgets",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No active or completed budgets"), cw)
	}

	leftW := max(cw/3, 30)
	rightW := cw - leftW
	if a.isCompactLayout() {
		leftW, rightW = cw, cw
	}

	list := a.renderBudgetList(reports, leftW, h)
	detail := a.renderBudgetDetail(reports[a.budgets.cursor], rightW, h)

	if a.isCompactLayout() {
		return list + "\n" + detail
	}
	return components.CardRow([]string{list, detail})
}

func (a App) renderBudgetList(reports []model.BudgetReport, w, h int) string {
	t := theme.Active
	bs := a.budgets
	inner := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	visible := max(h-6, 5)
	offset := bs.offset
	if bs.cursor < offset {
		offset = bs.cursor
	}
	if bs.cursor >= offset+visible {
		offset = bs.cursor - visible + 1
	}
	end := min(offset+visible, len(reports))

	var body strings.Builder
	for i := offset; i < end; i++ {
		r := reports[i]
		pct := 0.0
		if r.TotalAllocated.IsPositive() {
			pct = r.TotalSpent.Div(r.TotalAllocated).InexactFloat64() * 100
		}
		suffix := fmt.Sprintf(" %5.1f%%", pct)
		name := truncStr(r.Budget.Name, inner-lipgloss.Width(suffix)-1)
		line := fmt.Sprintf("%-*s%s", inner-lipgloss.Width(suffix), name, suffix)

		if i == bs.cursor {
			body.WriteString(selectedStyle.Render(line))
		} else {
			body.WriteString(rowStyle.Render(line))
		}
		body.WriteString("\n")
	}
	body.WriteString(mutedStyle.Render("[j/k] select  [J/K] scroll"))

	return components.ContentCard(fmt.Sprintf("Budgets (%d)", len(reports)), body.String(), w)
}

func (a App) renderBudgetDetail(r model.BudgetReport, w, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	recStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Italic(true)

	b := r.Budget
	var body strings.Builder
	fmt.Fprintf(&body, "%s %s   %s %s → %s\n",
		labelStyle.Render("Status:"), valueStyle.Render(string(b.StatusAt(r.AsOf))),
		labelStyle.Render("Period:"), valueStyle.Render(b.StartDate.Format("2006-01-02")),
		valueStyle.Render(b.EndDate.Format("2006-01-02")))
	fmt.Fprintf(&body, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("Total:"), valueStyle.Render(cli.FormatDecimal(b.TotalAmount)),
		labelStyle.Render("Allocated:"), valueStyle.Render(cli.FormatDecimal(r.TotalAllocated)),
		labelStyle.Render("Spent:"), valueStyle.Render(cli.FormatDecimal(r.TotalSpent)))
	body.WriteString("\n")

	labelW := min(16, inner/4)
	barW := max(inner-labelW-9, 5)
	for _, ar := range r.Allocations {
		body.WriteString(components.SpendBar(ar.CategoryID, ar.SpentPct, ar.TimeElapsedPct, labelW, barW))
		body.WriteString("\n")
		statusColor := t.ForStatus(string(ar.Status))
		fmt.Fprintf(&body, "%s  %s %s/%s  %s %s/day  %s %s\n",
			lipgloss.NewStyle().Foreground(statusColor).Background(t.Surface).Bold(true).Render(string(ar.Status)),
			labelStyle.Render("spent"), valueStyle.Render(cli.FormatDecimal(ar.Spent)), valueStyle.Render(cli.FormatDecimal(ar.Allocated)),
			labelStyle.Render("burn"), valueStyle.Render(cli.FormatDecimal(ar.BurnRate)),
			labelStyle.Render("projected"), valueStyle.Render(cli.FormatDecimal(ar.ProjectedSpend)))
		for _, rec := range ar.Recommendations {
			body.WriteString(recStyle.Render("  " + truncStr(rec, inner-2)))
			body.WriteString("\n")
		}
		body.WriteString("\n")
	}

	lines := strings.Split(strings.TrimRight(body.String(), "\n"), "\n")
	scroll := min(a.budgets.detailScroll, max(len(lines)-1, 0))
	visible := max(h-4, 3)
	lines = lines[scroll:]
	if len(lines) > visible {
		lines = lines[:visible]
	}

	return components.ContentCard(headStyle.Render(b.Name), strings.Join(lines, "\n"), w)
}
