// Package forecast projects future period values from a historical income
// series using interchangeable estimation methods.
package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// Method is the closed set of supported estimators.
type Method string

const (
	Linear        Method = "linear"
	MovingAverage Method = "moving_average"
	Seasonal      Method = "seasonal"
)

// Methods lists every supported method in display order.
var Methods = []Method{Linear, MovingAverage, Seasonal}

// DefaultWindow is the moving-average window used when none is configured.
const DefaultWindow = 3

// ParseMethod accepts the CLI and config spellings of a method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "linear", "regression", "linear_regression":
		return Linear, nil
	case "moving_average", "ma", "average":
		return MovingAverage, nil
	case "seasonal", "seasonal_adjusted":
		return Seasonal, nil
	}
	return "", ledger.Errorf(ledger.ErrValidation, "parse method", "unknown forecast method %q", s)
}

// Observation is one historical value with the start of its period.
type Observation struct {
	Start time.Time
	Value float64
}

// Estimator predicts one value per future period start.
type Estimator interface {
	Method() Method
	Predict(history []Observation, future []time.Time) []float64
}

// Options tunes a forecast run.
type Options struct {
	// Window is the moving-average window. Zero means DefaultWindow.
	Window int
	// Granularity steps future period starts. Zero means monthly.
	Granularity model.Granularity
}

// For returns the estimator for m.
func For(m Method, opts Options) (Estimator, error) {
	switch m {
	case Linear:
		return linearEstimator{}, nil
	case MovingAverage:
		w := opts.Window
		if w <= 0 {
			w = DefaultWindow
		}
		return movingAverageEstimator{window: w}, nil
	case Seasonal:
		return seasonalEstimator{}, nil
	}
	return nil, ledger.Errorf(ledger.ErrValidation, "forecast", "unknown forecast method %q", m)
}

// Forecast projects horizon future periods from the income totals of history.
func Forecast(history []model.PeriodBucket, horizon int, m Method, opts Options) (model.Forecast, error) {
	if horizon <= 0 {
		return model.Forecast{}, ledger.Errorf(ledger.ErrValidation, "forecast", "horizon must be positive, got %d", horizon)
	}
	if len(history) == 0 {
		return model.Forecast{}, ledger.Errorf(ledger.ErrInsufficientHistory, "forecast", "no historical periods")
	}
	est, err := For(m, opts)
	if err != nil {
		return model.Forecast{}, err
	}

	g := opts.Granularity
	if g == "" {
		g = model.GranularityMonth
	}

	obs := make([]Observation, len(history))
	values := make([]float64, len(history))
	for i, b := range history {
		v := b.Income.InexactFloat64()
		obs[i] = Observation{Start: b.Start, Value: v}
		values[i] = v
	}

	future := make([]time.Time, horizon)
	cur := history[len(history)-1].Start
	for i := range future {
		cur = g.Next(cur)
		future[i] = cur
	}

	amounts := est.Predict(obs, future)
	if len(amounts) != horizon {
		panic(fmt.Sprintf("forecast: %s returned %d points for horizon %d", m, len(amounts), horizon))
	}

	points := make([]model.ForecastPoint, horizon)
	for i, start := range future {
		points[i] = model.ForecastPoint{
			PeriodLabel: g.Label(start),
			PeriodStart: start,
			Amount:      amounts[i],
			IsForecast:  true,
		}
	}

	return model.Forecast{
		Method:     string(m),
		Points:     points,
		Confidence: Confidence(values),
	}, nil
}
