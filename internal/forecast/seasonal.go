package forecast

import (
	"time"

	"github.com/theirongolddev/fincast/internal/stats"
)

type seasonalEstimator struct{}

func (seasonalEstimator) Method() Method { return Seasonal }

// Predict scales the calendar-month baseline of each target period by the
// global trend between the first and second half of history.
func (seasonalEstimator) Predict(history []Observation, future []time.Time) []float64 {
	byMonth := make(map[time.Month][]float64)
	all := make([]float64, len(history))
	for i, o := range history {
		byMonth[o.Start.Month()] = append(byMonth[o.Start.Month()], o.Value)
		all[i] = o.Value
	}
	overall := stats.Mean(all)
	trend := Trend(all)

	out := make([]float64, len(future))
	for i, start := range future {
		baseline := overall
		if vs, ok := byMonth[start.Month()]; ok {
			baseline = stats.Mean(vs)
		}
		out[i] = stats.FloorZero(baseline * (1 + trend))
	}
	return out
}

// Trend is (secondHalfAvg - firstHalfAvg) / firstHalfAvg with halves split at
// n/2. It is 0 when the first half averages 0 or there is too little history.
func Trend(values []float64) float64 {
	mid := len(values) / 2
	if mid == 0 {
		return 0
	}
	first := stats.Mean(values[:mid])
	second := stats.Mean(values[mid:])
	return stats.SafeDiv(second-first, first, 0)
}
