package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/config"
	"github.com/theirongolddev/fincast/internal/engine"
	"github.com/theirongolddev/fincast/internal/forecast"
	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/tui/components"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	n := len(components.Tabs)
	for active := 0; active < n; active++ {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Fatalf("x past the last tab -> %d, want -1", got)
		}
	}
}

func TestNextMethodCycles(t *testing.T) {
	m := forecast.Linear
	seen := map[forecast.Method]bool{}
	for range forecast.Methods {
		seen[m] = true
		m = nextMethod(m)
	}
	if m != forecast.Linear {
		t.Fatalf("after a full cycle got %s, want linear", m)
	}
	if len(seen) != len(forecast.Methods) {
		t.Fatalf("visited %d methods, want %d", len(seen), len(forecast.Methods))
	}
	if got := nextMethod("bogus"); got != forecast.Methods[0] {
		t.Fatalf("unknown method -> %s, want %s", got, forecast.Methods[0])
	}
}

func TestHistoryWindow(t *testing.T) {
	start, end := historyWindow(testNow, 3)
	if want := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("start = %s, want %s", start, want)
	}
	if want := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Fatalf("end = %s, want %s", end, want)
	}

	start, _ = historyWindow(testNow, 0)
	if start.Month() != time.February {
		t.Fatalf("months < 1 should cover the last completed month, got %s", start)
	}
}

func testLedger() *ledger.Memory {
	mem := ledger.NewMemory()
	for _, m := range []time.Month{time.January, time.February, time.March} {
		mem.AddTransactions(
			model.Transaction{ID: "in-" + m.String(), Kind: model.Income, Amount: decimal.NewFromInt(5000),
				OccurredOn: time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC), Status: model.Completed},
			model.Transaction{ID: "out-" + m.String(), Kind: model.Expense, Amount: decimal.NewFromInt(1200),
				OccurredOn: time.Date(2024, m, 5, 0, 0, 0, 0, time.UTC), Status: model.Completed, CategoryID: "rent"},
		)
	}
	mem.PutBudget(model.Budget{
		ID: "b-mar", Name: "March", PeriodType: model.PeriodMonthly,
		StartDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(2000), Status: model.BudgetActive,
		Allocations: []model.Allocation{{
			BudgetID: "b-mar", CategoryID: "rent", AllocatedAmount: decimal.NewFromInt(1500), AlertAt80: true, AlertAt100: true,
		}},
	})
	mem.PutBudget(model.Budget{
		ID: "b-draft", Name: "Draft", PeriodType: model.PeriodMonthly,
		StartDate: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(1000), Status: model.BudgetDraft,
	})
	return mem
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.General.DefaultMonths = 3
	return cfg
}

func TestLoadDashboard(t *testing.T) {
	eng := engine.New(testLedger(), nil)
	d, err := loadDashboard(context.Background(), eng, testConfig(), forecast.Linear, testNow)
	if err != nil {
		t.Fatalf("loadDashboard: %v", err)
	}

	if len(d.History) != 3 {
		t.Fatalf("history buckets = %d, want 3", len(d.History))
	}
	if d.ForecastErr != nil {
		t.Fatalf("unexpected forecast error: %v", d.ForecastErr)
	}
	if len(d.Forecast.Points) != testConfig().Forecast.Horizon {
		t.Fatalf("forecast points = %d, want %d", len(d.Forecast.Points), testConfig().Forecast.Horizon)
	}
	if len(d.Projection) != projectionMonths {
		t.Fatalf("projection months = %d, want %d", len(d.Projection), projectionMonths)
	}
	if len(d.Budgets) != 1 || d.Budgets[0].Budget.ID != "b-mar" {
		t.Fatalf("budgets = %+v, want only b-mar", d.Budgets)
	}
	if len(d.Categories) != 1 || d.Categories[0].CategoryID != "rent" {
		t.Fatalf("categories = %+v, want rent only", d.Categories)
	}
	if !d.Health.AsOf.Equal(testNow) && !d.Health.AsOf.Equal(model.Day(testNow)) {
		t.Fatalf("health as of %s, want %s", d.Health.AsOf, testNow)
	}
}

func TestLoadDashboardSkipsPartialMonth(t *testing.T) {
	mem := ledger.NewMemory()
	for d := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC); d.Before(time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
		mem.AddTransactions(model.Transaction{ID: "in-" + d.Format("2006-01-02"), Kind: model.Income,
			Amount: decimal.NewFromInt(100), OccurredOn: d, Status: model.Completed})
	}
	cfg := testConfig()
	cfg.General.DefaultMonths = 5
	now := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

	d, err := loadDashboard(context.Background(), engine.New(mem, nil), cfg, forecast.MovingAverage, now)
	if err != nil {
		t.Fatalf("loadDashboard: %v", err)
	}
	if len(d.History) != 5 {
		t.Fatalf("history buckets = %d, want 5", len(d.History))
	}
	if last := d.History[len(d.History)-1]; last.Start.Month() != time.May {
		t.Fatalf("last bucket starts %s, want May", last.Start)
	}
	for _, p := range d.Forecast.Points {
		if p.Amount < 2900 {
			t.Fatalf("forecast %s = %.0f, want about 3000", p.PeriodLabel, p.Amount)
		}
	}
	if d.CashFlow.Trend == model.TrendDeclining {
		t.Fatal("steady income classified as declining")
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	eng := engine.New(testLedger(), nil)
	cfg := testConfig()
	d, err := loadDashboard(context.Background(), eng, cfg, forecast.Linear, testNow)
	if err != nil {
		t.Fatalf("loadDashboard: %v", err)
	}
	a := NewApp(Options{Engine: eng, Config: cfg, Backend: "memory", Now: func() time.Time { return testNow }})
	m, _ := a.Update(DataLoadedMsg{Data: d})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return m.(App)
}

func TestKeysSwitchTabs(t *testing.T) {
	a := loadedApp(t)

	m, _ := a.Update(keyMsg("b"))
	if got := m.(App).activeTab; got != tabBudgets {
		t.Fatalf("after 'b' tab = %d, want %d", got, tabBudgets)
	}
	m, _ = m.Update(keyMsg("x"))
	if got := m.(App).activeTab; got != tabSettings {
		t.Fatalf("after 'x' tab = %d, want %d", got, tabSettings)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := m.(App).activeTab; got != tabOverview {
		t.Fatalf("right from the last tab = %d, want %d", got, tabOverview)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	a := loadedApp(t)
	for i := range components.Tabs {
		a.activeTab = i
		if out := a.View(); out == "" {
			t.Fatalf("tab %d rendered nothing", i)
		}
	}
}

func TestForecastMethodKeyRefreshes(t *testing.T) {
	a := loadedApp(t)
	a.activeTab = tabForecast

	m, cmd := a.Update(keyMsg("m"))
	got := m.(App)
	if got.method != forecast.MovingAverage {
		t.Fatalf("method = %s, want moving_average", got.method)
	}
	if !got.refreshing || cmd == nil {
		t.Fatal("changing the method should start a refresh")
	}
}

func TestSettingsEditMethod(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t)
	a.activeTab = tabSettings
	a.settings.cursor = settingsFieldMethod

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = m.(App)
	if !a.settings.editing {
		t.Fatal("enter should start editing")
	}

	a.settings.input.SetValue("seasonal")
	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = m.(App)
	if a.settings.editing {
		t.Fatal("enter should finish editing")
	}
	if a.method != forecast.Seasonal || a.cfg.Forecast.Method != "seasonal" {
		t.Fatalf("method = %s / %s, want seasonal", a.method, a.cfg.Forecast.Method)
	}
	if a.settings.saveErr != nil {
		t.Fatalf("save: %v", a.settings.saveErr)
	}
	if cmd == nil {
		t.Fatal("a forecast setting change should trigger a refresh")
	}

	saved, err := config.Load()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if saved.Forecast.Method != "seasonal" {
		t.Fatalf("persisted method = %q, want seasonal", saved.Forecast.Method)
	}
}

func TestSettingsRejectsInvalidValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t)
	a.activeTab = tabSettings
	a.settings.cursor = settingsFieldHorizon
	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = m.(App)

	a.settings.input.SetValue("-2")
	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = m.(App)
	if a.settings.invalid != "-2" {
		t.Fatalf("invalid = %q, want -2", a.settings.invalid)
	}
	if a.cfg.Forecast.Horizon != testConfig().Forecast.Horizon {
		t.Fatalf("horizon changed to %d", a.cfg.Forecast.Horizon)
	}
	if a.settings.saved {
		t.Fatal("a rejected value must not report saved")
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	v := setupValuesFrom(cfg)
	v.backend = "postgres"
	v.postgresDSN = " postgres://u:p@db/ledger "
	v.months = "6"
	v.theme = "no-such-theme"
	v.method = "seasonal"

	got := v.apply(cfg)
	if got.Ledger.Backend != "postgres" || got.Ledger.PostgresDSN != "postgres://u:p@db/ledger" {
		t.Fatalf("ledger = %+v", got.Ledger)
	}
	if got.General.DefaultMonths != 6 {
		t.Fatalf("months = %d, want 6", got.General.DefaultMonths)
	}
	if got.Appearance.Theme != cfg.Appearance.Theme {
		t.Fatalf("unknown theme should keep %q, got %q", cfg.Appearance.Theme, got.Appearance.Theme)
	}
	if got.Forecast.Method != "seasonal" {
		t.Fatalf("method = %q", got.Forecast.Method)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("applied config invalid: %v", err)
	}
}
