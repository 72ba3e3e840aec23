package forecast

import (
	"time"

	"github.com/theirongolddev/fincast/internal/stats"
)

type movingAverageEstimator struct {
	window int
}

func (movingAverageEstimator) Method() Method { return MovingAverage }

// Predict repeats the mean of the trailing window for every future period.
// Shorter histories use all available values.
func (e movingAverageEstimator) Predict(history []Observation, future []time.Time) []float64 {
	w := e.window
	if w > len(history) {
		w = len(history)
	}
	tail := make([]float64, 0, w)
	for _, o := range history[len(history)-w:] {
		tail = append(tail, o.Value)
	}
	avg := stats.Mean(tail)

	out := make([]float64, len(future))
	for i := range out {
		out[i] = avg
	}
	return out
}
