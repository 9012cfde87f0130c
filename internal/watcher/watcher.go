// Package watcher polls a board at a regular interval, detecting WIP spikes,
// tasks aging past their stage's highest percentile and completions, and
// emitting alerts.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

// State captures a point-in-time view of a board's flow.
type State struct {
	Timestamp      time.Time
	WIP            map[string]int // stage name -> count
	TotalWIP       int
	Completed      map[string]bool
	LeadTimeP85    int     // days
	Predictability float64 // latest month's P95/P50, 0 when unknown

	// Overdue maps task keys aging beyond their stage's highest percentile
	// to where they sit.
	Overdue map[string]OverdueTask
}

// OverdueTask is a task older than every percentile zone of its stage.
type OverdueTask struct {
	Stage string
	Days  int
	Rank  int // highest configured percentile
}

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning", "critical"
	Title   string
	Message string
	Time    time.Time
}

// SnapshotFunc produces the current board state.
type SnapshotFunc func(ctx context.Context) (*State, error)

// Watcher polls a board at a regular interval and emits alerts when notable
// changes are detected.
type Watcher struct {
	snapshot      SnapshotFunc
	interval      time.Duration
	previous      *State
	alertFn       func(Alert)     // callback for emitting alerts
	lastAlertKeys map[string]bool // dedup: suppress repeated identical alerts
	WIPLimit      int             // total WIP above which a warning fires; 0 disables
}

// New creates a Watcher that takes states from snapshot.
func New(snapshot SnapshotFunc, interval time.Duration, alertFn func(Alert)) *Watcher {
	return &Watcher{
		snapshot:      snapshot,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
	}
}

// Start takes the baseline state that later checks compare against.
func (w *Watcher) Start(ctx context.Context) (*State, error) {
	initial, err := w.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = initial
	return initial, nil
}

// Run checks at every interval until ctx is cancelled. It calls Start
// first when no baseline exists.
func (w *Watcher) Run(ctx context.Context) error {
	if w.previous == nil {
		if _, err := w.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check performs a single check cycle: takes a new snapshot, compares against
// the previous state, updates the previous state, and returns any alerts.
// Identical alerts are suppressed until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	curr, err := w.snapshot(ctx)
	if err != nil {
		return []Alert{{
			Level:   "warning",
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not read board: %v", err),
			Time:    time.Now(),
		}}
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}

	if w.WIPLimit > 0 && curr.TotalWIP > w.WIPLimit {
		raw = append(raw, Alert{
			Level:   "warning",
			Title:   "WIP limit exceeded",
			Message: fmt.Sprintf("%d tasks in progress (limit: %d)", curr.TotalWIP, w.WIPLimit),
			Time:    time.Now(),
		})
	}

	// Deduplicate: suppress alerts with the same title+message as last cycle.
	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	w.previous = curr
	return alerts
}

// StateFromBoard computes a State for q. With CompletionLast the final
// selected stage does not count as WIP. Overdue tasks are those whose age
// falls in the open-ended zone above the stage's highest percentile.
func StateFromBoard(b *flow.Board, q flow.Query, months int) *State {
	state := &State{
		Timestamp: time.Now(),
		WIP:       make(map[string]int),
		Completed: make(map[string]bool),
		Overdue:   make(map[string]OverdueTask),
	}

	wip := b.WIPCounts(q)
	if q.Completion == flow.CompletionLast && len(wip) > 0 {
		wip = wip[:len(wip)-1]
	}
	for _, w := range wip {
		state.WIP[w.Stage.Name] = w.Count
		state.TotalWIP += w.Count
	}
	for _, iv := range b.ThroughputSeries(q) {
		for _, k := range iv.TaskKeys {
			state.Completed[k] = true
		}
	}
	state.LeadTimeP85 = b.LeadTimeStatistics(q.InDays()).Percentiles[85]
	if points := b.Predictability(q, months); len(points) > 0 {
		state.Predictability = points[len(points)-1].Ratio
	}

	zones := make(map[int][]flow.PercentileSegment)
	for _, sp := range b.ColumnPercentileSegments(q) {
		zones[sp.Stage.Index] = sp.Segments
	}
	for _, sa := range b.AgingPlacement(q) {
		for _, g := range sa.Groups {
			for _, t := range g.Tasks {
				seg, ok := flow.ZoneOf(zones[sa.Stage.Index], float64(t.AgingDays))
				if !ok || !seg.Above {
					continue
				}
				state.Overdue[t.TaskKey] = OverdueTask{Stage: sa.Stage.Name, Days: t.AgingDays, Rank: seg.Rank}
			}
		}
	}
	return state
}
