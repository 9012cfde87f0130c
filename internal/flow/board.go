package flow

import (
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Board is a normalized transition log ready for querying. It is immutable
// once built, so concurrent queries are safe.
type Board struct {
	stages  []Stage
	records map[string]*ActivityRecord
	keys    []string
	stats   NormalizeStats
}

// NewBoard normalizes log into a Board.
func NewBoard(log *Log) *Board {
	b := &Board{}
	if log != nil {
		b.stages = append([]Stage(nil), log.Stages...)
		sort.Slice(b.stages, func(i, j int) bool { return b.stages[i].Index < b.stages[j].Index })
	}
	b.records, b.stats = Normalize(log)
	b.keys = make([]string, 0, len(b.records))
	for k := range b.records {
		b.keys = append(b.keys, k)
	}
	sort.Strings(b.keys)
	return b
}

// Stages returns the workflow stages in order.
func (b *Board) Stages() []Stage { return append([]Stage(nil), b.stages...) }

// Terminal returns the index of the last workflow stage, or -1 when the
// board has no stages.
func (b *Board) Terminal() int { return len(b.stages) - 1 }

// Record returns the activity record of a task.
func (b *Board) Record(key string) (*ActivityRecord, bool) {
	r, ok := b.records[key]
	return r, ok
}

// TaskCount is the number of tasks with at least one valid transition.
func (b *Board) TaskCount() int { return len(b.keys) }

// NormalizeStats reports how the log was normalized.
func (b *Board) NormalizeStats() NormalizeStats { return b.stats }

// ResolveStages maps display names to stages, in workflow order. Names are
// matched case-insensitively. Unknown names are returned separately. No
// names selects every stage.
func (b *Board) ResolveStages(names []string) ([]Stage, []string) {
	if len(names) == 0 {
		return b.Stages(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []Stage
	for _, s := range b.stages {
		key := strings.ToLower(s.Name)
		if want[key] {
			out = append(out, s)
			delete(want, key)
		}
	}
	var unknown []string
	for _, n := range names {
		if want[strings.ToLower(strings.TrimSpace(n))] {
			unknown = append(unknown, n)
		}
	}
	return out, unknown
}

// selection returns the query's stages in workflow order, or every stage.
func (b *Board) selection(q Query) []Stage {
	if len(q.Stages) == 0 {
		return b.Stages()
	}
	sel := append([]Stage(nil), q.Stages...)
	sort.Slice(sel, func(i, j int) bool { return sel[i].Index < sel[j].Index })
	return sel
}

// TaskDurations returns the dwell times of every task active in the query
// window, ordered by task key. The per-task pass runs in parallel.
func (b *Board) TaskDurations(q Query) []TaskDuration {
	indices := stageIndices(b.selection(q))
	terminal := b.Terminal()
	stageCount := len(b.stages)
	asOf := q.asOf()

	results := make([]*TaskDuration, len(b.keys))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range b.keys {
		i := i
		rec := b.records[key]
		g.Go(func() error {
			if !IsActiveInWindow(rec, stageCount, q.Window) {
				return nil
			}
			by := ComputeDurations(rec, indices, terminal, asOf)
			results[i] = &TaskDuration{TaskKey: rec.Key, ByStage: by, Total: sumDurations(by)}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]TaskDuration, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// LeadTimeHistogram buckets the lead times of tasks active in the window.
func (b *Board) LeadTimeHistogram(q Query) []HistogramBucket {
	return BuildHistogram(b.TaskDurations(q), q.Resolution)
}

// LeadTimeStatistics summarizes LeadTimeHistogram.
func (b *Board) LeadTimeStatistics(q Query) Statistics {
	return Summarize(b.LeadTimeHistogram(q))
}

// ReferenceLines returns nearest-rank percentiles, in days, of the dense
// day-resolution lead-time histogram for each requested rank. No ranks means
// DefaultPercentiles.
func (b *Board) ReferenceLines(q Query) []PercentileValue {
	ranks := q.Percentiles
	if len(ranks) == 0 {
		ranks = DefaultPercentiles
	}
	dense := DenseHistogram(BuildHistogram(b.TaskDurations(q), ResolutionDay))
	out := make([]PercentileValue, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, PercentileValue{Rank: r, Value: float64(XPercentile(dense, float64(r)))})
	}
	return out
}

// AgingPlacement groups the tasks currently in each selected stage by age
// in days. With CompletionLast the final selected stage is left empty.
func (b *Board) AgingPlacement(q Query) []StageAging {
	sel := b.selection(q)
	durations := b.TaskDurations(q)

	out := make([]StageAging, 0, len(sel))
	for pos, stage := range sel {
		sa := StageAging{Stage: stage, Groups: []AgingGroup{}}
		if q.Completion == CompletionLast && pos == len(sel)-1 {
			out = append(out, sa)
			continue
		}
		var tasks []AgingTask
		for _, td := range durations {
			if IsInStageNow(b.records[td.TaskKey], stage.Index) {
				tasks = append(tasks, AgingTask{TaskKey: td.TaskKey, AgingDays: agingDays(td)})
			}
		}
		sa.Groups = groupAging(pos, tasks)
		out = append(out, sa)
	}
	return out
}

// WIPCounts counts, per selected stage, the tasks active in the window that
// currently sit in the stage and entered it during the window.
func (b *Board) WIPCounts(q Query) []StageWIP {
	sel := b.selection(q)
	durations := b.TaskDurations(q)

	out := make([]StageWIP, 0, len(sel))
	for _, stage := range sel {
		w := StageWIP{Stage: stage, Tasks: []string{}}
		for _, td := range durations {
			rec := b.records[td.TaskKey]
			if !IsInStageNow(rec, stage.Index) {
				continue
			}
			last, _ := rec.lastStart(stage.Index)
			d := msDay(last)
			if d.Before(q.Window.From) || d.After(q.Window.To) {
				continue
			}
			w.Tasks = append(w.Tasks, td.TaskKey)
		}
		w.Count = len(w.Tasks)
		out = append(out, w)
	}
	return out
}

// ColumnPercentileSegments computes interpolated aging zones per stage.
func (b *Board) ColumnPercentileSegments(q Query) []StagePercentiles {
	return ComputeColumnPercentiles(b.TaskDurations(q), b.selection(q), q.Percentiles, q.Completion)
}

// ThroughputSeries counts tasks completing per interval of the window. A
// task completes when it first enters the last selected stage or any stage
// after it.
func (b *Board) ThroughputSeries(q Query) []IntervalBucket {
	sel := b.selection(q)
	if len(sel) == 0 {
		return nil
	}
	return ComputeThroughput(b.records, sel[len(sel)-1].Index, len(b.stages), q.Window, q.Resolution)
}

// Predictability computes the P95/P50 lead-time ratio for each of the last
// months calendar months up to q.AsOf, oldest first. Months without data are
// omitted. Each month's window runs from its first day to the first day of
// the next month.
func (b *Board) Predictability(q Query, months int) []PredictabilityPoint {
	if months <= 0 {
		return nil
	}
	var points []PredictabilityPoint
	for _, start := range monthStarts(q.asOf(), months) {
		mq := q
		mq.Window = Window{From: start, To: start.AddDate(0, 1, 0)}
		values := expandValues(b.LeadTimeHistogram(mq))
		if len(values) == 0 {
			continue
		}
		p50 := NearestRank(values, 50)
		p95 := NearestRank(values, 95)
		if p50 <= 0 {
			continue
		}
		points = append(points, PredictabilityPoint{
			Month:     start.Format("2006-01"),
			P50:       p50,
			P95:       p95,
			TaskCount: len(values),
			Ratio:     round1(float64(p95) / float64(p50)),
		})
	}
	return withTrend(points)
}

// ControlChart places each task active in the window at its latest entry
// into a selected stage, with its lead time in days and rolling statistics.
func (b *Board) ControlChart(q Query) []ControlPoint {
	indices := stageIndices(b.selection(q))

	var points []ControlPoint
	for _, td := range b.TaskDurations(q) {
		rec := b.records[td.TaskKey]
		var latest int64
		found := false
		for _, idx := range indices {
			if ts, ok := rec.lastStart(idx); ok && (!found || ts > latest) {
				latest, found = ts, true
			}
		}
		if !found {
			continue
		}
		points = append(points, ControlPoint{
			TaskKey:      td.TaskKey,
			Started:      time.UnixMilli(latest).UTC(),
			LeadTimeDays: agingDays(td),
		})
	}
	return applyRolling(points)
}
