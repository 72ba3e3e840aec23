package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	DataAge     string
	Backend     string
	Alerts      int
	Refreshing  bool
	AutoRefresh bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).Bold(true)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")
	if info.Alerts > 0 {
		left += base.Render("  ") + warn.Render(fmt.Sprintf("%d alert(s) due", info.Alerts))
	}

	var right []string
	if info.Refreshing {
		right = append(right, accent.Render("refreshing…"))
	} else if info.AutoRefresh {
		right = append(right, accent.Render("auto"))
	}
	if info.Backend != "" {
		right = append(right, base.Render(info.Backend))
	}
	if info.DataAge != "" {
		right = append(right, base.Render("loaded in "+info.DataAge))
	}
	rightStr := strings.Join(right, base.Render(" · ")) + base.Render(" ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(rightStr), 0)
	return left + base.Render(strings.Repeat(" ", gap)) + rightStr
}
