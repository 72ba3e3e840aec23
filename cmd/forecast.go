package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/fincast/internal/cli"
	"github.com/theirongolddev/fincast/internal/engine"
	"github.com/theirongolddev/fincast/internal/forecast"
	"github.com/theirongolddev/fincast/internal/model"
	"github.com/theirongolddev/fincast/internal/pipeline"
)

var (
	flagFcMethod      string
	flagFcHorizon     int
	flagFcWindow      int
	flagFcGranularity string
	flagFcFrom        string
	flagFcTo          string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project future income from the history window",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVarP(&flagFcMethod, "method", "m", "", "linear, moving_average or seasonal (default from config)")
	forecastCmd.Flags().IntVar(&flagFcHorizon, "horizon", 0, "Periods to project (default from config)")
	forecastCmd.Flags().IntVar(&flagFcWindow, "window", 0, "Moving-average window (default from config)")
	forecastCmd.Flags().StringVarP(&flagFcGranularity, "granularity", "g", "", "day, week or month (default from config)")
	forecastCmd.Flags().StringVar(&flagFcFrom, "from", "", "First history day (YYYY-MM-DD)")
	forecastCmd.Flags().StringVar(&flagFcTo, "to", "", "Last history day, inclusive (YYYY-MM-DD)")
	rootCmd.AddCommand(forecastCmd)
}

type forecastOutput struct {
	History  []model.PeriodBucket `json:"history"`
	Forecast model.Forecast       `json:"forecast"`
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	start, end, err := rangeFlags(flagFcFrom, flagFcTo)
	if err != nil {
		return err
	}
	g, err := granularityFlag(flagFcGranularity)
	if err != nil {
		return err
	}

	methodName := flagFcMethod
	if methodName == "" {
		methodName = cfg.Forecast.Method
	}
	method, err := forecast.ParseMethod(methodName)
	if err != nil {
		return err
	}
	horizon := flagFcHorizon
	if horizon == 0 {
		horizon = cfg.Forecast.Horizon
	}
	window := flagFcWindow
	if window == 0 {
		window = cfg.Forecast.Window
	}

	eng, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	fc, hist, err := eng.Forecast(ctx, engine.ForecastRequest{
		Start:       start,
		End:         end,
		Granularity: g,
		Horizon:     horizon,
		Method:      method,
		Window:      window,
	})
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(forecastOutput{History: hist, Forecast: fc})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("INCOME FORECAST  %s, %d %s periods", method, horizon, g)))
	fmt.Println()

	income := pipeline.IncomeSeries(hist)
	projected := make([]float64, 0, len(income)+len(fc.Points))
	projected = append(projected, income...)

	rows := make([][]string, 0, len(hist)+len(fc.Points)+1)
	for _, b := range hist {
		rows = append(rows, []string{b.Label, cli.FormatDecimal(b.Income), ""})
	}
	rows = append(rows, []string{cli.Separator})
	for _, p := range fc.Points {
		projected = append(projected, p.Amount)
		rows = append(rows, []string{p.PeriodLabel, "", cli.RenderForecast(cli.FormatMoney(p.Amount))})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Period", "Income", "Forecast"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Printf("  Trend       %s\n", cli.RenderSparkline(projected))
	fmt.Printf("  Confidence  %s\n", cli.FormatPercent(fc.Confidence))
	fmt.Println()
	return nil
}
