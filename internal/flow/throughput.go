package flow

import (
	"sort"
	"time"
)

// CompletionTime returns when rec completed: the earliest first entry into
// completionStage or any later stage up to the terminal one.
func CompletionTime(rec *ActivityRecord, completionStage, stageCount int) (int64, bool) {
	if rec == nil {
		return 0, false
	}
	var best int64
	found := false
	for stage := completionStage; stage < stageCount; stage++ {
		ts, ok := rec.firstStart(stage)
		if !ok {
			continue
		}
		if !found || ts < best {
			best, found = ts, true
		}
	}
	return best, found
}

// ComputeThroughput counts completed tasks per interval of w.
//
// Intervals are res.IntervalDays() long and start at w.From; the last one
// may run past w.To. Completion is compared by UTC day. A task is counted in
// the first interval that contains its completion day and never again.
// Tasks completing outside w are not counted.
func ComputeThroughput(records map[string]*ActivityRecord, completionStage, stageCount int, w Window, res Resolution) []IntervalBucket {
	type completed struct {
		key string
		day time.Time
	}

	var done []completed
	for key, rec := range records {
		ts, ok := CompletionTime(rec, completionStage, stageCount)
		if !ok {
			continue
		}
		d := msDay(ts)
		if d.Before(w.From) || d.After(w.To) {
			continue
		}
		done = append(done, completed{key: key, day: d})
	}
	sort.Slice(done, func(i, j int) bool {
		if !done[i].day.Equal(done[j].day) {
			return done[i].day.Before(done[j].day)
		}
		return done[i].key < done[j].key
	})

	length := res.IntervalDays()
	counted := make(map[string]bool, len(done))

	var out []IntervalBucket
	for start := w.From; !start.After(w.To); start = start.AddDate(0, 0, length) {
		b := IntervalBucket{Start: start, End: start.AddDate(0, 0, length-1), TaskKeys: []string{}}
		for _, c := range done {
			if counted[c.key] || c.day.Before(b.Start) || c.day.After(b.End) {
				continue
			}
			counted[c.key] = true
			b.TaskKeys = append(b.TaskKeys, c.key)
		}
		b.Count = len(b.TaskKeys)
		out = append(out, b)
	}
	return out
}

// SummarizeThroughput totals a throughput series and averages it per interval.
func SummarizeThroughput(buckets []IntervalBucket) ThroughputStatistics {
	var stats ThroughputStatistics
	for _, b := range buckets {
		stats.Total += b.Count
	}
	if len(buckets) > 0 {
		stats.Average = float64(stats.Total) / float64(len(buckets))
	}
	return stats
}
