package crunch

import (
	"math"
	"sort"
)

// Percentile returns the p'th percentile of values using the
// nearest-rank method with ceiling rounding: the element at index
// ceil(p/100 * N) of the ascending sort, clamped to the last element
// when the index reaches N. There is no interpolation. values is left
// unmodified. Returns NaN for an empty input.
func Percentile(p float64, values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	index := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if index >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[index]
}
