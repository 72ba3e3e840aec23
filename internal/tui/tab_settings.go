package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/config"
	"github.com/theirongolddev/fincast/internal/forecast"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/tui/components"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

const (
	settingsFieldTheme = iota
	settingsFieldMonths
	settingsFieldMethod
	settingsFieldHorizon
	settingsFieldWindow
	settingsFieldGranularity
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
	invalid string // last rejected value, shown until the next edit
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

// settingsValue is the current display/edit value of a field.
func (a App) settingsValue(field int) string {
	switch field {
	case settingsFieldTheme:
		return a.cfg.Appearance.Theme
	case settingsFieldMonths:
		return strconv.Itoa(a.cfg.General.DefaultMonths)
	case settingsFieldMethod:
		return string(a.method)
	case settingsFieldHorizon:
		return strconv.Itoa(a.cfg.Forecast.Horizon)
	case settingsFieldWindow:
		return strconv.Itoa(a.cfg.Forecast.Window)
	case settingsFieldGranularity:
		return a.cfg.Forecast.Granularity
	case settingsFieldAutoRefresh:
		return strconv.FormatBool(a.autoRefresh)
	case settingsFieldRefreshInterval:
		return strconv.Itoa(int(a.refreshInterval.Seconds()))
	}
	return ""
}

var settingsPlaceholders = [settingsFieldCount]string{
	settingsFieldTheme:           strings.Join(theme.Names(), ", "),
	settingsFieldMonths:          "12",
	settingsFieldMethod:          "linear, moving_average, seasonal",
	settingsFieldHorizon:         "3",
	settingsFieldWindow:          "3",
	settingsFieldGranularity:     "day, week, month",
	settingsFieldAutoRefresh:     "true or false",
	settingsFieldRefreshInterval: "60 (seconds, minimum 10)",
}

func (a App) updateSettingsKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "j", "down":
		if a.settings.cursor < settingsFieldCount-1 {
			a.settings.cursor++
		}
		return a, nil, true
	case "k", "up":
		if a.settings.cursor > 0 {
			a.settings.cursor--
		}
		return a, nil, true
	case "enter":
		m, cmd := a.settingsStartEdit()
		return m, cmd, true
	}
	return a, nil, false
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false
	a.settings.invalid = ""

	ti := newSettingsInput()
	ti.Placeholder = settingsPlaceholders[a.settings.cursor]
	ti.SetValue(a.settingsValue(a.settings.cursor))
	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		reload := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil && a.settings.invalid == ""
		if reload && !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.opts, a.cfg, a.method)
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited value and persists the config. It reports
// whether the dashboard must be recomputed.
func (a *App) settingsSave() bool {
	val := strings.TrimSpace(a.settings.input.Value())
	reject := func() bool {
		a.settings.invalid = val
		return false
	}
	positive := func() (int, bool) {
		n, err := strconv.Atoi(val)
		return n, err == nil && n > 0
	}

	reload := false
	switch a.settings.cursor {
	case settingsFieldTheme:
		if !theme.Valid(val) {
			return reject()
		}
		a.cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldMonths:
		n, ok := positive()
		if !ok {
			return reject()
		}
		a.cfg.General.DefaultMonths = n
		reload = true
	case settingsFieldMethod:
		m, err := forecast.ParseMethod(val)
		if err != nil {
			return reject()
		}
		a.method = m
		a.cfg.Forecast.Method = string(m)
		reload = true
	case settingsFieldHorizon:
		n, ok := positive()
		if !ok {
			return reject()
		}
		a.cfg.Forecast.Horizon = n
		reload = true
	case settingsFieldWindow:
		n, ok := positive()
		if !ok {
			return reject()
		}
		a.cfg.Forecast.Window = n
		reload = true
	case settingsFieldGranularity:
		g, err := model.ParseGranularity(val)
		if err != nil {
			return reject()
		}
		a.cfg.Forecast.Granularity = string(g)
		reload = true
	case settingsFieldAutoRefresh:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return reject()
		}
		a.autoRefresh = b
		a.cfg.TUI.AutoRefresh = b
	case settingsFieldRefreshInterval:
		n, err := strconv.Atoi(val)
		if err != nil || time.Duration(n)*time.Second < minRefreshInterval {
			return reject()
		}
		a.cfg.TUI.RefreshIntervalSec = n
		a.refreshInterval = time.Duration(n) * time.Second
	}

	a.settings.saveErr = config.Save(a.cfg)
	return reload
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	labels := [settingsFieldCount]string{
		"Theme", "History Months", "Forecast Method", "Forecast Horizon",
		"MA Window", "Granularity", "Auto Refresh", "Refresh Interval",
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, label := range labels {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", label)))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}

		value := a.settingsValue(i)
		if i == settingsFieldRefreshInterval {
			value += "s"
		}
		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			l := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", label+":"))
			v := selectedStyle.Render(value)
			form.WriteString(marker + l + v)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(l) - lipgloss.Width(v); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			form.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", label+":")))
			form.WriteString(valueStyle.Render(value))
		}
		form.WriteString("\n")
	}

	switch {
	case a.settings.saveErr != nil:
		form.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	case a.settings.invalid != "":
		form.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Invalid value %q", a.settings.invalid)))
	case a.settings.saved:
		form.WriteString("\n" + greenStyle.Render("Saved!"))
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	info.WriteString(labelStyle.Render("Backend:      ") + valueStyle.Render(a.cfg.Ledger.Backend) + "\n")
	if a.cfg.Ledger.Backend == "sqlite" {
		info.WriteString(labelStyle.Render("Ledger file:  ") + valueStyle.Render(a.cfg.Ledger.SQLitePath) + "\n")
	}
	if a.cfg.Ledger.ImportDir != "" {
		info.WriteString(labelStyle.Render("Import dir:   ") + valueStyle.Render(a.cfg.Ledger.ImportDir) + "\n")
	}
	if r := a.importRes; r != nil {
		info.WriteString(labelStyle.Render("Last import:  ") + valueStyle.Render(fmt.Sprintf(
			"%s files, %s new, %s transactions",
			cli.FormatNumber(int64(r.TotalFiles)),
			cli.FormatNumber(int64(r.Imported)),
			cli.FormatNumber(int64(r.Transactions)))) + "\n")
	}
	info.WriteString(labelStyle.Render("Load time:    ") + valueStyle.Render(fmt.Sprintf("%.1fs", a.loadTime.Seconds())) + "\n")
	info.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.ConfigPath()))

	return components.ContentCard("Settings", form.String(), cw) + "\n" +
		components.ContentCard("Ledger", info.String(), cw)
}
