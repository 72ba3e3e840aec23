package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fincast/internal/ledger"
	"github.com/theirongolddev/fincast/internal/model"
)

// monthly builds consecutive month buckets starting January 2024.
func monthly(values ...float64) []model.PeriodBucket {
	out := make([]model.PeriodBucket, len(values))
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		s := start.AddDate(0, i, 0)
		out[i] = model.PeriodBucket{
			Label:  s.Format("2006-01"),
			Start:  s,
			End:    model.MonthEnd(s),
			Income: decimal.NewFromFloat(v),
		}
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestLinearReproducesLine(t *testing.T) {
	// 100 + 50x for x = 1..6
	hist := monthly(150, 200, 250, 300, 350, 400)
	for _, horizon := range []int{1, 3, 12} {
		fc, err := Forecast(hist, horizon, Linear, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if len(fc.Points) != horizon {
			t.Fatalf("got %d points, want %d", len(fc.Points), horizon)
		}
		for i, p := range fc.Points {
			want := 100 + 50*float64(7+i)
			if !approx(p.Amount, want) {
				t.Fatalf("horizon %d point %d = %v, want %v", horizon, i, p.Amount, want)
			}
			if !p.IsForecast {
				t.Fatal("point not marked as forecast")
			}
		}
	}
}

func TestLinearStepScenario(t *testing.T) {
	hist := monthly(1000, 1000, 1000, 2000, 2000, 2000)

	obs := make([]Observation, len(hist))
	for i, b := range hist {
		obs[i] = Observation{Start: b.Start, Value: b.Income.InexactFloat64()}
	}
	slope, intercept, ok := Fit(obs)
	if !ok {
		t.Fatal("fit undefined")
	}
	if !approx(slope, 27000.0/105.0) || !approx(intercept, 600) {
		t.Fatalf("slope=%v intercept=%v", slope, intercept)
	}

	fc, err := Forecast(hist, 1, Linear, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !approx(fc.Points[0].Amount, 2400) {
		t.Fatalf("period 7 = %v, want 2400", fc.Points[0].Amount)
	}
	if fc.Points[0].PeriodLabel != "2024-07" {
		t.Fatalf("label = %s", fc.Points[0].PeriodLabel)
	}
}

func TestLinearSinglePointHoldsFlat(t *testing.T) {
	fc, err := Forecast(monthly(420), 3, Linear, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range fc.Points {
		if p.Amount != 420 {
			t.Fatalf("flat fallback = %v, want 420", p.Amount)
		}
	}
	if fc.Confidence != 50 {
		t.Fatalf("confidence = %v, want 50", fc.Confidence)
	}
}

func TestLinearFloorsAtZero(t *testing.T) {
	fc, err := Forecast(monthly(500, 300, 100), 2, Linear, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range fc.Points {
		if p.Amount != 0 {
			t.Fatalf("declining series should floor at 0, got %v", p.Amount)
		}
	}
}

func TestMovingAverage(t *testing.T) {
	fc, err := Forecast(monthly(100, 100, 100), 4, MovingAverage, Options{Window: 3})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range fc.Points {
		if p.Amount != 100 {
			t.Fatalf("moving average = %v, want 100", p.Amount)
		}
	}

	fc, _ = Forecast(monthly(10, 20, 30, 40), 1, MovingAverage, Options{})
	if !approx(fc.Points[0].Amount, 30) {
		t.Fatalf("default window = %v, want 30", fc.Points[0].Amount)
	}
	fc, _ = Forecast(monthly(10, 20), 1, MovingAverage, Options{Window: 5})
	if !approx(fc.Points[0].Amount, 15) {
		t.Fatalf("short history = %v, want 15", fc.Points[0].Amount)
	}
}

func TestSeasonal(t *testing.T) {
	// Jan..Dec 2024 then Jan 2025: two Januaries.
	vals := []float64{100, 200, 200, 200, 200, 200, 300, 300, 300, 300, 300, 300, 300}
	hist := monthly(vals...)
	fc, err := Forecast(hist, 2, Seasonal, Options{})
	if err != nil {
		t.Fatal(err)
	}

	trend := Trend(vals)
	// First target is Feb 2025, baseline is Feb 2024 alone.
	if !approx(fc.Points[0].Amount, 200*(1+trend)) {
		t.Fatalf("feb = %v, want %v", fc.Points[0].Amount, 200*(1+trend))
	}
	if fc.Points[0].PeriodLabel != "2025-02" {
		t.Fatalf("label = %s", fc.Points[0].PeriodLabel)
	}
}

func TestSeasonalUnseenMonthUsesOverallMean(t *testing.T) {
	fc, err := Forecast(monthly(100, 100), 1, Seasonal, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// March has no history; trend is 0.
	if !approx(fc.Points[0].Amount, 100) {
		t.Fatalf("got %v, want 100", fc.Points[0].Amount)
	}
}

func TestTrendZeroFirstHalf(t *testing.T) {
	if got := Trend([]float64{0, 0, 50, 50}); got != 0 {
		t.Fatalf("Trend = %v, want 0", got)
	}
	if got := Trend([]float64{100, 100, 150, 150}); !approx(got, 0.5) {
		t.Fatalf("Trend = %v, want 0.5", got)
	}
}

func TestForecastErrors(t *testing.T) {
	if _, err := Forecast(nil, 1, Linear, Options{}); !errors.Is(err, ledger.ErrInsufficientHistory) {
		t.Fatalf("empty history: %v", err)
	}
	if _, err := Forecast(monthly(1), 0, Linear, Options{}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("zero horizon: %v", err)
	}
	if _, err := Forecast(monthly(1), 1, Method("arima"), Options{}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("unknown method: %v", err)
	}
}

func TestEveryMethodIsSwappable(t *testing.T) {
	hist := monthly(100, 120, 140, 160)
	for _, m := range Methods {
		fc, err := Forecast(hist, 5, m, Options{})
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if fc.Method != string(m) || len(fc.Points) != 5 {
			t.Fatalf("%s: %+v", m, fc)
		}
		if fc.Confidence < 20 || fc.Confidence > 95 {
			t.Fatalf("%s: confidence %v out of range", m, fc.Confidence)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"linear":         Linear,
		"moving-average": MovingAverage,
		"MA":             MovingAverage,
		"seasonal":       Seasonal,
	}
	for in, want := range tests {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMethod("prophet"); err == nil {
		t.Fatal("expected error")
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		want float64
	}{
		{"too short", []float64{1, 2}, 50},
		{"zero mean", []float64{0, 0, 0}, 50},
		{"constant", []float64{100, 100, 100}, 95},
		{"volatile", []float64{0, 0, 300}, 20},
		// mean 100, popstd sqrt(200/3)
		{"moderate", []float64{90, 100, 110}, 100 - 100*math.Sqrt(200.0/3)/100},
	}
	for _, tt := range tests {
		if got := Confidence(tt.vals); !approx(got, tt.want) {
			t.Errorf("%s: Confidence = %v, want %v", tt.name, got, tt.want)
		}
	}
}
