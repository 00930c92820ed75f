// Package stats provides small order-statistic helpers for reports.
package stats

// Percentile returns the p-th percentile of an ascending slice using the
// nearest-rank index p*n/100, clamped to the last element. It returns 0 for
// an empty slice.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Median returns the middle value of an ascending slice, averaging the two
// middle values for even lengths. It returns 0 for an empty slice.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
