// Package flow reconstructs per-stage dwell time from a board's transition log
// and derives flow metrics: lead-time histograms, percentile zones, aging,
// WIP, throughput and predictability.
package flow

import "time"

// Stage is a workflow column. Index is its position in the workflow;
// the highest index is the terminal stage.
type Stage struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// TransitionEvent records a task moving between stages. A nil From means the
// task entered the workflow at Timestamp.
type TransitionEvent struct {
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // unix milliseconds
	TaskKey   string `json:"key" yaml:"key"`
	From      *int   `json:"columnFrom,omitempty" yaml:"columnFrom,omitempty"`
	To        *int   `json:"columnTo,omitempty" yaml:"columnTo,omitempty"`
}

// Log is a board's stage list plus its transitions grouped by timestamp.
type Log struct {
	Stages                 []Stage                     `json:"stages" yaml:"stages"`
	TransitionsByTimestamp map[int64][]TransitionEvent `json:"transitions" yaml:"transitions"`
}

// ActivityRecord holds, per stage index, the sorted entry and exit
// timestamps (unix ms) of one task. Starts[s][i] pairs with Ends[s][i].
type ActivityRecord struct {
	Key    string
	Starts map[int][]int64
	Ends   map[int][]int64
}

// TaskDuration is the derived dwell time of one task.
type TaskDuration struct {
	TaskKey string `json:"task_key"`

	// ByStage holds dwell per stage index. A missing key means the task never
	// entered the stage; a zero value means it did but accrued nothing.
	ByStage map[int]time.Duration `json:"by_stage"`

	// Total is the lead time over the queried stages.
	Total time.Duration `json:"total"`
}

// HistogramBucket groups tasks whose lead time converts to the same value
// in the chosen resolution.
type HistogramBucket struct {
	Value    int      `json:"value"`
	Count    int      `json:"count"`
	TaskKeys []string `json:"tasks"`
}

// IntervalBucket is one throughput interval.
type IntervalBucket struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Count    int       `json:"count"`
	TaskKeys []string  `json:"tasks"`
}

// Statistics summarizes a lead-time histogram.
type Statistics struct {
	TotalTasks  int         `json:"total_tasks"`
	Mean        float64     `json:"mean"`
	Percentiles map[int]int `json:"percentiles"`
}

// ThroughputStatistics summarizes a throughput series.
type ThroughputStatistics struct {
	Total   int     `json:"total"`
	Average float64 `json:"average"`
}
