package flow

import "time"

// ComputeDurations returns the dwell time of rec in each of the given stages.
//
// The i-th start is paired with the i-th end. When the most recent start has
// no end the task is still in the stage and the interval runs to asOf, except
// in the terminal stage, where an open stay adds nothing. Any other unmatched
// start is an ordering anomaly and adds nothing either. Negative intervals are
// clamped to zero.
//
// Stages the task never entered are absent from the result.
func ComputeDurations(rec *ActivityRecord, stages []int, terminal int, asOf time.Time) map[int]time.Duration {
	out := make(map[int]time.Duration, len(stages))
	if rec == nil {
		return out
	}
	now := asOf.UnixMilli()

	for _, stage := range stages {
		starts := rec.Starts[stage]
		if len(starts) == 0 {
			continue
		}
		ends := rec.Ends[stage]

		var total int64
		for i, start := range starts {
			var end int64
			switch {
			case i < len(ends):
				end = ends[i]
			case i == len(starts)-1 && stage != terminal:
				end = now
			default:
				continue
			}
			if d := end - start; d > 0 {
				total += d
			}
		}
		out[stage] = time.Duration(total) * time.Millisecond
	}

	return out
}

// ComputeLeadTime is the sum of ComputeDurations over stages.
func ComputeLeadTime(rec *ActivityRecord, stages []int, terminal int, asOf time.Time) time.Duration {
	return sumDurations(ComputeDurations(rec, stages, terminal, asOf))
}

func sumDurations(m map[int]time.Duration) time.Duration {
	var total time.Duration
	for _, d := range m {
		total += d
	}
	return total
}
