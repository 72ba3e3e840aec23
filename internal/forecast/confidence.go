package forecast

import "github.com/theirongolddev/fincast/internal/stats"

const (
	minConfidence     = 20
	maxConfidence     = 95
	defaultConfidence = 50
)

// Confidence scores forecast reliability in [20, 95] from the coefficient of
// variation of the historical values. Fewer than 3 points or a zero mean
// yield 50.
func Confidence(values []float64) float64 {
	if len(values) < 3 {
		return defaultConfidence
	}
	mean := stats.Mean(values)
	if mean == 0 {
		return defaultConfidence
	}
	cv := stats.PopStdDev(values) / mean
	return stats.Clamp(100-100*cv, minConfidence, maxConfidence)
}
