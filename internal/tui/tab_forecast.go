package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/pipeline"
	"github.com/theirongolddev/fincast/internal/tui/components"
	"github.com/theirongolddev/fincast/internal/tui/theme"
)

func (a App) renderForecastTab(cw int) string {
	t := theme.Active
	d := a.data
	var b strings.Builder

	income := pipeline.IncomeSeries(d.History)
	var histTotal float64
	for _, v := range income {
		histTotal += v
	}
	var fcTotal float64
	for _, p := range d.Forecast.Points {
		fcTotal += p.Amount
	}

	confidence := "n/a"
	if d.ForecastErr == nil {
		confidence = cli.FormatPercent(d.Forecast.Confidence)
	}
	metrics := []components.Metric{
		{Label: "Method", Value: string(d.Method), Delta: "[m] to cycle"},
		{Label: "History", Value: cli.FormatMoney(histTotal), Color: t.Income(),
			Delta: fmt.Sprintf("%d %s periods", len(d.History), d.Granularity)},
		{Label: "Forecast", Value: cli.FormatMoney(fcTotal), Color: t.Projected(),
			Delta: fmt.Sprintf("next %d periods", len(d.Forecast.Points))},
		{Label: "Confidence", Value: confidence, Delta: "volatility-based"},
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	values := make([]float64, 0, len(income)+len(d.Forecast.Points))
	labels := make([]string, 0, cap(values))
	for i, v := range income {
		values = append(values, v)
		labels = append(labels, d.History[i].Label)
	}
	for _, p := range d.Forecast.Points {
		values = append(values, p.Amount)
		labels = append(labels, p.PeriodLabel)
	}

	chartH := 12
	if a.isCompactLayout() {
		chartH = 8
	}
	chart := components.BarChart(components.Series{
		Values: values,
		Labels: labels,
		Color:  t.Income(),
		Split:  len(income),
	}, components.CardInnerWidth(cw), chartH)
	b.WriteString(components.ContentCard("Income: history and forecast", chart, cw))
	b.WriteString("\n")

	if d.ForecastErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		b.WriteString(components.ContentCard("Forecast unavailable", warn.Render(d.ForecastErr.Error()), cw))
		return b.String()
	}

	tbl := cli.Table{Headers: []string{"Period", "Projected income"}}
	for _, p := range d.Forecast.Points {
		tbl.Rows = append(tbl.Rows, []string{p.PeriodLabel, cli.FormatMoney(p.Amount)})
	}
	b.WriteString(components.ContentCard("Projected periods", strings.TrimRight(cli.RenderTable(tbl), "\n"), cw))
	return b.String()
}
