package flow

import (
	"math"
	"time"
)

// PredictabilityPoint is the P95/P50 lead-time ratio of one calendar month.
type PredictabilityPoint struct {
	Month     string  `json:"month"` // YYYY-MM
	P50       int     `json:"p50"`
	P95       int     `json:"p95"`
	TaskCount int     `json:"task_count"`
	Ratio     float64 `json:"ratio"`
	Trend     float64 `json:"trend"`
}

// LinearRegression fits y = intercept + slope*x over x = 0..n-1 by ordinary
// least squares. With fewer than two points the slope is 0 and the intercept
// is the mean.
func LinearRegression(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if len(ys) == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// monthStarts returns the first day (UTC) of the month containing asOf and
// of the months-1 months before it, oldest first.
func monthStarts(asOf time.Time, months int) []time.Time {
	asOf = asOf.UTC()
	current := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, months)
	for i := months - 1; i >= 0; i-- {
		out = append(out, current.AddDate(0, -i, 0))
	}
	return out
}

// withTrend fills in the least-squares trend of the ratio series.
func withTrend(points []PredictabilityPoint) []PredictabilityPoint {
	ratios := make([]float64, len(points))
	for i, p := range points {
		ratios[i] = p.Ratio
	}
	slope, intercept := LinearRegression(ratios)
	for i := range points {
		points[i].Trend = round1(intercept + slope*float64(i))
	}
	return points
}
