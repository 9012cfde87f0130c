package flow

import "sort"

// NormalizeStats reports what Normalize did with the raw log.
type NormalizeStats struct {
	Events  int `json:"events"`
	Skipped int `json:"skipped"`
	Tasks   int `json:"tasks"`
}

// Normalize folds a transition log into one ActivityRecord per task.
// Leaving a stage appends to Ends, entering appends to Starts. Events without
// a timestamp, task key or destination are skipped. Every per-stage list is
// sorted afterwards, so the result does not depend on map iteration order.
func Normalize(log *Log) (map[string]*ActivityRecord, NormalizeStats) {
	records := make(map[string]*ActivityRecord)
	var stats NormalizeStats
	if log == nil {
		return records, stats
	}

	for ts, events := range log.TransitionsByTimestamp {
		for _, ev := range events {
			stats.Events++
			if ev.Timestamp == 0 {
				ev.Timestamp = ts
			}
			if ev.Timestamp == 0 || ev.TaskKey == "" || ev.To == nil {
				stats.Skipped++
				continue
			}

			rec, ok := records[ev.TaskKey]
			if !ok {
				rec = &ActivityRecord{
					Key:    ev.TaskKey,
					Starts: make(map[int][]int64),
					Ends:   make(map[int][]int64),
				}
				records[ev.TaskKey] = rec
			}

			if ev.From != nil {
				rec.Ends[*ev.From] = append(rec.Ends[*ev.From], ev.Timestamp)
			}
			rec.Starts[*ev.To] = append(rec.Starts[*ev.To], ev.Timestamp)
		}
	}

	for _, rec := range records {
		for _, ts := range rec.Starts {
			sortTimestamps(ts)
		}
		for _, ts := range rec.Ends {
			sortTimestamps(ts)
		}
	}
	stats.Tasks = len(records)

	return records, stats
}

func sortTimestamps(ts []int64) {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
}

// lastStart returns the latest entry into stage, or false if none.
func (r *ActivityRecord) lastStart(stage int) (int64, bool) {
	starts := r.Starts[stage]
	if len(starts) == 0 {
		return 0, false
	}
	return starts[len(starts)-1], true
}

// firstStart returns the earliest entry into stage, or false if none.
func (r *ActivityRecord) firstStart(stage int) (int64, bool) {
	starts := r.Starts[stage]
	if len(starts) == 0 {
		return 0, false
	}
	return starts[0], true
}
