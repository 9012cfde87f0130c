// Package store provides SQLite persistence for flowwatch board settings and
// metric snapshots.
package store

import "time"

// Snapshot is one recorded run of the track command for a board.
type Snapshot struct {
	ID         int64     `json:"id"`
	TakenAt    time.Time `json:"taken_at"`
	BoardKey   string    `json:"board_key"`
	Source     string    `json:"source"`
	WindowFrom string    `json:"window_from"`
	WindowTo   string    `json:"window_to"`
	Version    string    `json:"version"`
}

// AggregateMetric represents a named metric value within a snapshot.
type AggregateMetric struct {
	ID          int64   `json:"id"`
	SnapshotID  int64   `json:"snapshot_id"`
	MetricName  string  `json:"metric_name"`
	MetricValue float64 `json:"metric_value"`
	Detail      string  `json:"detail,omitempty"`
}

// BoardSettings are the saved query parameters of one board.
type BoardSettings struct {
	BoardKey     string    `json:"board_key"`
	Stages       []string  `json:"stages"`
	Resolution   string    `json:"resolution"`
	Completion   string    `json:"completion"`
	Percentiles  []int     `json:"percentiles"`
	WindowDays   int       `json:"window_days"`
	Swimlanes    []string  `json:"swimlanes,omitempty"`
	QuickFilters []string  `json:"quick_filters,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SnapshotDiff represents the comparison between two snapshots.
type SnapshotDiff struct {
	Previous *Snapshot     `json:"previous"`
	Current  *Snapshot     `json:"current"`
	Deltas   []MetricDelta `json:"deltas"`
}

// MetricDelta represents the change in a single metric between snapshots.
type MetricDelta struct {
	Name      string  `json:"name"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"` // "improved", "regressed", "unchanged"
}
