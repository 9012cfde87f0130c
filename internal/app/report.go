package app

import (
	"time"

	"github.com/blackwell-systems/flowwatch/internal/exporter"
	"github.com/blackwell-systems/flowwatch/internal/flow"
)

// buildReport computes the headline metrics of a session. Lead times are in
// days whatever the session's resolution.
func buildReport(s *session, months int) exporter.Report {
	return exporter.Report{
		Board:          s.Identity.ID,
		WIP:            s.Board.WIPCounts(s.Query),
		LeadTime:       s.Board.LeadTimeStatistics(s.Query.InDays()),
		Throughput:     flow.SummarizeThroughput(s.Board.ThroughputSeries(s.Query)),
		Predictability: s.Board.Predictability(s.Query, months),
		GeneratedAt:    time.Now(),
	}
}

// reportMetrics flattens a report into named values for tracking.
func reportMetrics(r exporter.Report) map[string]float64 {
	wip := 0
	for _, w := range r.WIP {
		wip += w.Count
	}
	m := map[string]float64{
		"tasks":              float64(r.LeadTime.TotalTasks),
		"lead_time_mean":     r.LeadTime.Mean,
		"lead_time_p50":      float64(r.LeadTime.Percentiles[50]),
		"lead_time_p85":      float64(r.LeadTime.Percentiles[85]),
		"lead_time_p95":      float64(r.LeadTime.Percentiles[95]),
		"wip_total":          float64(wip),
		"throughput_total":   float64(r.Throughput.Total),
		"throughput_average": r.Throughput.Average,
	}
	if n := len(r.Predictability); n > 0 {
		m["predictability_ratio"] = r.Predictability[n-1].Ratio
	}
	return m
}
