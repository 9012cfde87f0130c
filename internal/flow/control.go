package flow

import (
	"math"
	"sort"
	"time"
)

// ControlPoint is one task on the control chart.
type ControlPoint struct {
	TaskKey       string    `json:"task_key"`
	Started       time.Time `json:"started"`
	LeadTimeDays  int       `json:"lead_time_days"`
	RollingMean   float64   `json:"rolling_mean"`
	RollingStdDev float64   `json:"rolling_std_dev"`
}

// rollingWindow is the centred window size for n points: a fifth of the
// points, forced odd, never below 5.
func rollingWindow(n int) int {
	w := (n / 5) | 1
	if w < 5 {
		w = 5
	}
	return w
}

// applyRolling sorts points by start time and fills the centred rolling mean
// of lead time, then the rolling standard deviation of that mean.
func applyRolling(points []ControlPoint) []ControlPoint {
	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].Started.Equal(points[j].Started) {
			return points[i].Started.Before(points[j].Started)
		}
		return points[i].TaskKey < points[j].TaskKey
	})

	n := len(points)
	half := rollingWindow(n) / 2

	for i := range points {
		lo, hi := bounds(i, half, n)
		sum := 0.0
		for _, p := range points[lo : hi+1] {
			sum += float64(p.LeadTimeDays)
		}
		points[i].RollingMean = sum / float64(hi-lo+1)
	}

	for i := range points {
		lo, hi := bounds(i, half, n)
		window := points[lo : hi+1]
		mean := 0.0
		for _, p := range window {
			mean += p.RollingMean
		}
		mean /= float64(len(window))
		variance := 0.0
		for _, p := range window {
			d := p.RollingMean - mean
			variance += d * d
		}
		points[i].RollingStdDev = math.Sqrt(variance / float64(len(window)))
	}
	return points
}

func bounds(i, half, n int) (int, int) {
	lo := i - half
	if lo < 0 {
		lo = 0
	}
	hi := i + half
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}
