package flow

import (
	"math"
	"sort"
)

// ExactPercentile returns the linearly interpolated percentile of values:
// the value at fractional index rank/100*(n-1). It returns 0 for an empty
// list. values need not be sorted.
func ExactPercentile(values []float64, rank float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := rank / 100 * float64(n-1)
	if pos <= 0 {
		return sorted[0]
	}
	if pos >= float64(n-1) {
		return sorted[n-1]
	}
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// AllowedPercentiles is the set of ranks that have a zone colour.
var AllowedPercentiles = []int{30, 50, 70, 85, 95}

// FilterPercentiles keeps the allowed ranks from ranks, sorted and without
// duplicates.
func FilterPercentiles(ranks []int) []int {
	allowed := make(map[int]bool, len(AllowedPercentiles))
	for _, r := range AllowedPercentiles {
		allowed[r] = true
	}
	seen := make(map[int]bool)
	var out []int
	for _, r := range ranks {
		if allowed[r] && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Ints(out)
	return out
}
