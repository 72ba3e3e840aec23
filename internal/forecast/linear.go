package forecast

import (
	"time"

	"github.com/theirongolddev/fincast/internal/stats"
)

// linearEstimator fits amount = intercept + slope*x by least squares over x = 1..n.
type linearEstimator struct{}

func (linearEstimator) Method() Method { return Linear }

func (linearEstimator) Predict(history []Observation, future []time.Time) []float64 {
	out := make([]float64, len(future))
	slope, intercept, ok := Fit(history)
	if !ok {
		// A single observation has no slope: hold it flat.
		flat := stats.FloorZero(history[len(history)-1].Value)
		for i := range out {
			out[i] = flat
		}
		return out
	}

	n := float64(len(history))
	for i := range out {
		x := n + float64(i+1)
		out[i] = stats.FloorZero(intercept + slope*x)
	}
	return out
}

// Fit returns the least-squares slope and intercept of history against 1..n.
// ok is false when the fit is undefined.
func Fit(history []Observation) (slope, intercept float64, ok bool) {
	n := float64(len(history))
	var sumX, sumY, sumXY, sumX2 float64
	for i, o := range history {
		x := float64(i + 1)
		sumX += x
		sumY += o.Value
		sumXY += x * o.Value
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept, true
}
