package flow

import (
	"math"
	"sort"
	"time"
)

// ConvertToResolution converts d to whole units of res, rounding up:
// days, weeks, half the week count for two-weeks, and 30-day months.
func ConvertToResolution(d time.Duration, res Resolution) float64 {
	ms := float64(d.Milliseconds())
	dayMs := float64(day.Milliseconds())

	switch res {
	case ResolutionWeek:
		return math.Ceil(ms / (7 * dayMs))
	case ResolutionTwoWeeks:
		return math.Ceil(ms/(7*dayMs)) / 2
	case ResolutionMonth:
		return math.Ceil(ms / (30 * dayMs))
	default:
		return math.Ceil(ms / dayMs)
	}
}

// roundHalfUp rounds x to the nearest integer with halves going up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// BuildHistogram buckets tasks by their total lead time in res. Tasks whose
// bucket value is not positive are left out. Buckets are sparse and ordered
// by ascending value; task keys keep the input order.
func BuildHistogram(tasks []TaskDuration, res Resolution) []HistogramBucket {
	byValue := make(map[int]*HistogramBucket)
	for _, t := range tasks {
		v := roundHalfUp(ConvertToResolution(t.Total, res))
		if v <= 0 {
			continue
		}
		b, ok := byValue[v]
		if !ok {
			b = &HistogramBucket{Value: v}
			byValue[v] = b
		}
		b.Count++
		b.TaskKeys = append(b.TaskKeys, t.TaskKey)
	}

	out := make([]HistogramBucket, 0, len(byValue))
	for _, b := range byValue {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// DenseHistogram expands sparse buckets into one bucket per value from 0 to
// the largest value, filling gaps with empty buckets. The result is indexed
// by value.
func DenseHistogram(buckets []HistogramBucket) []HistogramBucket {
	if len(buckets) == 0 {
		return nil
	}
	top := 0
	for _, b := range buckets {
		if b.Value > top {
			top = b.Value
		}
	}

	dense := make([]HistogramBucket, top+1)
	for v := range dense {
		dense[v].Value = v
	}
	for _, b := range buckets {
		if b.Value < 0 {
			continue
		}
		dense[b.Value].Count += b.Count
		dense[b.Value].TaskKeys = append(dense[b.Value].TaskKeys, b.TaskKeys...)
	}
	return dense
}

// expandValues flattens buckets into a sorted list with each value repeated
// Count times.
func expandValues(buckets []HistogramBucket) []int {
	var values []int
	for _, b := range buckets {
		for i := 0; i < b.Count; i++ {
			values = append(values, b.Value)
		}
	}
	sort.Ints(values)
	return values
}

// NearestRank returns the nearest-rank percentile of sorted values: the
// element at ceil(rank/100*n)-1. It returns 0 for an empty list.
func NearestRank(sorted []int, rank float64) int {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(rank/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// XPercentile is the nearest-rank percentile of a histogram weighted by
// bucket counts. Chart reference lines (P50, P95, ...) use this.
func XPercentile(hist []HistogramBucket, rank float64) int {
	return NearestRank(expandValues(hist), rank)
}

// StatisticsRanks are the percentiles reported by Summarize.
var StatisticsRanks = []int{50, 75, 80, 85, 90, 95, 100}

// Summarize reports the task count, weighted mean and nearest-rank
// percentiles of a histogram.
func Summarize(hist []HistogramBucket) Statistics {
	stats := Statistics{Percentiles: make(map[int]int, len(StatisticsRanks))}

	values := expandValues(hist)
	stats.TotalTasks = len(values)
	if len(values) > 0 {
		sum := 0
		for _, v := range values {
			sum += v
		}
		stats.Mean = float64(sum) / float64(len(values))
	}
	for _, r := range StatisticsRanks {
		stats.Percentiles[r] = NearestRank(values, float64(r))
	}
	return stats
}
