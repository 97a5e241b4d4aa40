// Package quantile ranks a valuation against its own history.
//
// Breakpoints use the linear-interpolation estimator h = (n-1)p.
package quantile

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/indexbeta/internal/contracts"
)

// Breakpoints is the number of decile breakpoints (0%, 10%, … 100%)
const Breakpoints = 11

// Quantile returns the p-quantile of values by linear interpolation.
// NaN entries are ignored; p must lie in [0, 1].
func Quantile(values []float64, p float64) (float64, error) {
	sorted := sortedFinite(values)
	if len(sorted) == 0 {
		return 0, contracts.ErrInsufficientHistory
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: quantile p=%v", contracts.ErrInvalidInput, p)
	}
	return quantileSorted(sorted, p), nil
}

// Deciles returns the 11 breakpoints q[i] = Quantile(values, i/10)
func Deciles(values []float64) ([Breakpoints]float64, error) {
	var q [Breakpoints]float64

	sorted := sortedFinite(values)
	if len(sorted) == 0 {
		return q, contracts.ErrInsufficientHistory
	}

	for i := range q {
		q[i] = quantileSorted(sorted, float64(i)/10.0)
	}
	return q, nil
}

// PercentileOf returns where value sits in distribution, in [0, 1]
// ⭐ SSOT: 백분위 계산은 여기서만
func PercentileOf(value float64, distribution []float64) (float64, error) {
	if math.IsNaN(value) {
		return 0, fmt.Errorf("%w: value is NaN", contracts.ErrInvalidInput)
	}

	q, err := Deciles(distribution)
	if err != nil {
		return 0, err
	}
	return PercentileOfDeciles(value, q), nil
}

// PercentileOfDeciles interpolates value between precomputed breakpoints.
// Below the minimum it is 0; from the 90% breakpoint upward it is 1.
func PercentileOfDeciles(value float64, q [Breakpoints]float64) float64 {
	// insertion point to the right: count of breakpoints <= value
	idx := sort.Search(Breakpoints, func(i int) bool { return q[i] > value })

	if idx == 0 {
		return 0.0
	}
	if idx >= Breakpoints-1 {
		return 1.0
	}

	width := q[idx] - q[idx-1]
	if width == 0 {
		return float64(idx) / 10.0
	}

	fraction := (q[idx] - value) / width
	return (float64(idx) - fraction) / 10.0
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func sortedFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
