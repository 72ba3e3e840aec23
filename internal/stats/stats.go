// Package stats holds the small numeric helpers shared by the forecasting,
// cash-flow, and scoring code.
package stats

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopStdDev returns the population standard deviation of xs.
func PopStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// SafeDiv returns num/den, or def when den is zero.
func SafeDiv(num, den, def float64) float64 {
	if den == 0 {
		return def
	}
	return num / den
}

// FloorZero returns v, or 0 when v is negative.
func FloorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
